package api

import (
	"errors"
	"fmt"
	"testing"
)

func TestActor_Attribute(t *testing.T) {
	a := Actor{ID: "1", Username: "angus", TrustLevel: 2, Admin: true, Attributes: map[string]string{"team": "blue"}}

	cases := []struct {
		name string
		want string
		ok   bool
	}{
		{"username", "angus", true},
		{"trust_level", "2", true},
		{"admin", "true", true},
		{"team", "blue", true},
		{"email", "", false},
		{"missing", "", false},
	}
	for _, tc := range cases {
		got, ok := a.Attribute(tc.name)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Attribute(%q) = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestActor_AttributeMapBuiltinsWin(t *testing.T) {
	a := Actor{Username: "angus", Attributes: map[string]string{"username": "spoof", "team": "blue"}}
	m := a.AttributeMap()
	if m["username"] != "angus" || m["team"] != "blue" {
		t.Fatalf("unexpected attribute map: %v", m)
	}
	if !a.Anonymous() {
		t.Fatalf("actor without id should be anonymous")
	}
}

func TestSubmissionRecord_Merge(t *testing.T) {
	r := NewSubmissionRecord("welcome", "1")
	r.Merge("step_1", map[string]any{"a": "x"})
	r.Version = 1
	r.Merge("step_1", map[string]any{"a": "y", "b": "z"})
	r.Merge("", map[string]any{"action_1": "out"})

	if len(r.Steps) != 1 || r.Steps[0] != "step_1" {
		t.Fatalf("Steps = %v, want [step_1]", r.Steps)
	}
	if len(r.History) != 2 || r.History[0].Version != 1 || r.History[1].Version != 2 {
		t.Fatalf("unexpected history: %+v", r.History)
	}
	if r.Values["a"] != "y" || r.Values["b"] != "z" || r.Values["action_1"] != "out" {
		t.Fatalf("unexpected values: %v", r.Values)
	}
}

func TestActionToken(t *testing.T) {
	if got := ActionToken("3"); got != "action_3" {
		t.Fatalf("ActionToken(3) = %q", got)
	}
	if got := (ActionDefinition{ID: "action_3"}).Token(); got != "action_3" {
		t.Fatalf("prefixed id was changed: %q", got)
	}
}

func TestWizardDefinition_DisplayName(t *testing.T) {
	if got := (WizardDefinition{ID: "welcome", Name: "  "}).DisplayName(); got != "welcome" {
		t.Fatalf("DisplayName fallback = %q", got)
	}
}

func TestParseNotificationLevel(t *testing.T) {
	if l, ok := ParseNotificationLevel(""); !ok || l != NotificationRegular {
		t.Fatalf("empty level should default to regular")
	}
	if _, ok := ParseNotificationLevel("loud"); ok {
		t.Fatalf("unknown level accepted")
	}
}

func TestErrors_Unwrap(t *testing.T) {
	v := &ValidationError{StepID: "step_1"}
	v.Add("name", "required")
	v.Add("age", "not a number")
	wrapped := fmt.Errorf("update: %w", v)

	got, ok := IsValidationError(wrapped)
	if !ok || len(got.Fields) != 2 {
		t.Fatalf("IsValidationError failed: %v %v", got, ok)
	}
	if want := "step step_1: validation failed: name: required; age: not a number"; v.Error() != want {
		t.Fatalf("Error() = %q, want %q", v.Error(), want)
	}

	ae := &ActionError{ActionID: "1", Kind: ActionSendMessage, Target: "ghost", Err: ErrNotFound}
	if !errors.Is(ae, ErrNotFound) {
		t.Fatalf("ActionError should unwrap to ErrNotFound")
	}
	ce := &ConditionError{Err: ErrUnresolvedReference}
	if !errors.Is(ce, ErrUnresolvedReference) {
		t.Fatalf("ConditionError should unwrap")
	}
}
