package api

import (
	"strconv"
	"time"
)

// Actor is the user running a wizard. An empty ID means anonymous.
type Actor struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	Name       string            `json:"name,omitempty"`
	Email      string            `json:"email,omitempty"`
	TrustLevel int               `json:"trust_level,omitempty"`
	Locale     string            `json:"locale,omitempty"`
	Admin      bool              `json:"admin,omitempty"`
	Groups     []string          `json:"groups,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Anonymous reports whether the actor is not logged in.
func (a Actor) Anonymous() bool {
	return a.ID == ""
}

// Attribute resolves an actor attribute by name. Custom Attributes are
// consulted after the built-in ones.
func (a Actor) Attribute(name string) (string, bool) {
	switch name {
	case "id":
		return a.ID, a.ID != ""
	case "username":
		return a.Username, a.Username != ""
	case "name":
		return a.Name, a.Name != ""
	case "email":
		return a.Email, a.Email != ""
	case "trust_level":
		return strconv.Itoa(a.TrustLevel), true
	case "locale":
		return a.Locale, a.Locale != ""
	case "admin":
		return strconv.FormatBool(a.Admin), true
	}
	v, ok := a.Attributes[name]
	return v, ok
}

// AttributeMap flattens the actor into the map exposed to expression conditions.
func (a Actor) AttributeMap() map[string]any {
	m := map[string]any{
		"id":          a.ID,
		"username":    a.Username,
		"name":        a.Name,
		"email":       a.Email,
		"trust_level": a.TrustLevel,
		"locale":      a.Locale,
		"admin":       a.Admin,
		"groups":      append([]string(nil), a.Groups...),
	}
	for k, v := range a.Attributes {
		if _, builtin := m[k]; !builtin {
			m[k] = v
		}
	}
	return m
}

// Access describes whether an actor may run a built wizard.
type Access string

const (
	AccessGranted       Access = "granted"
	AccessRequiresLogin Access = "requires_login"
	AccessNotPermitted  Access = "not_permitted"
	AccessCompleted     Access = "completed"
)

// WizardInstance is the Builder's derived view of a definition for one actor.
// It is recomputed on every build and never persisted.
type WizardInstance struct {
	WizardID    string           `json:"id"`
	Name        string           `json:"name"`
	Background  string           `json:"background,omitempty"`
	Actor       Actor            `json:"actor"`
	Steps       []StepDefinition `json:"steps"` // active steps, each with active fields only
	CurrentStep string           `json:"current_step,omitempty"`
	Completed   bool             `json:"completed"`
	Access      Access           `json:"access"`
}

// HasStep reports whether id is one of the instance's active steps.
func (w *WizardInstance) HasStep(id string) bool {
	_, ok := w.Step(id)
	return ok
}

// Step returns the active step with the given id.
func (w *WizardInstance) Step(id string) (StepDefinition, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// SubmissionRecord accumulates one actor's values for one wizard.
//
// Values is keyed by token (field ids and action_<id> outputs) and holds
// JSON-compatible values. It never shrinks.
type SubmissionRecord struct {
	WizardID  string         `json:"wizard_id"`
	UserID    string         `json:"user_id"`
	Values    map[string]any `json:"values"`
	Steps     []string       `json:"steps"`
	Completed bool           `json:"completed"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`

	// RedirectOnComplete is the latest completion redirect set by an action
	// on any step. It is followed when the run completes.
	RedirectOnComplete string `json:"redirect_on_complete,omitempty"`

	// History is the append-only trail of step submissions.
	History []StepSubmission `json:"history,omitempty"`
}

// StepSubmission records one accepted step submission.
type StepSubmission struct {
	StepID    string    `json:"step_id"`
	Version   int64     `json:"version"`
	Submitted time.Time `json:"submitted_at"`
}

// NewSubmissionRecord returns an empty, unsaved record.
func NewSubmissionRecord(wizardID, userID string) *SubmissionRecord {
	return &SubmissionRecord{
		WizardID: wizardID,
		UserID:   userID,
		Values:   make(map[string]any),
	}
}

// HasStep reports whether the step has been submitted at least once.
func (r *SubmissionRecord) HasStep(id string) bool {
	for _, s := range r.Steps {
		if s == id {
			return true
		}
	}
	return false
}

// Merge overwrites existing tokens with values and records the step. A
// non-empty stepID is appended to History with the version the record will
// have once saved.
func (r *SubmissionRecord) Merge(stepID string, values map[string]any) {
	if r.Values == nil {
		r.Values = make(map[string]any, len(values))
	}
	for k, v := range values {
		r.Values[k] = v
	}
	if stepID == "" {
		return
	}
	if !r.HasStep(stepID) {
		r.Steps = append(r.Steps, stepID)
	}
	r.History = append(r.History, StepSubmission{
		StepID:    stepID,
		Version:   r.Version + 1,
		Submitted: time.Now().UTC(),
	})
}

// SubmissionView is a record annotated with the wizard display name.
type SubmissionView struct {
	WizardID   string            `json:"id"`
	WizardName string            `json:"name"`
	Record     *SubmissionRecord `json:"submission"`
}

// SubmissionGroup lists every record of one wizard.
type SubmissionGroup struct {
	WizardID    string              `json:"id"`
	WizardName  string              `json:"name"`
	Submissions []*SubmissionRecord `json:"submissions"`
}

// NavigationKind tells the renderer what to do after an update.
type NavigationKind string

const (
	NavigateNext     NavigationKind = "next"
	NavigateRedirect NavigationKind = "redirect"
	NavigateComplete NavigationKind = "complete"
)

// Navigation is the outcome of a successful update.
type Navigation struct {
	Kind   NavigationKind `json:"kind"`
	StepID string         `json:"step_id,omitempty"`
	URL    string         `json:"url,omitempty"`
}

// UpdateResult is returned by Updater.Update.
type UpdateResult struct {
	WizardID           string     `json:"wizard_id"`
	StepID             string     `json:"step_id"`
	Navigation         Navigation `json:"navigation"`
	Completed          bool       `json:"completed"`
	RedirectOnNext     string     `json:"redirect_on_next,omitempty"`
	RedirectOnComplete string     `json:"redirect_on_complete,omitempty"`

	// Outputs holds the action outputs exposed during this update, by token.
	Outputs map[string]any `json:"outputs,omitempty"`

	// ActionErrors are non-fatal failures of individual actions.
	ActionErrors []*ActionError `json:"-"`
}
