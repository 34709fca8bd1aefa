// Package actions implements the fixed set of side-effecting action handlers.
//
// Each kind is a variant type implementing Action. Decode maps an
// api.ActionDefinition onto its variant; adding a kind means adding a type
// and a case to Decode.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/petrijr/wizflow/internal/interpolate"
	"github.com/petrijr/wizflow/pkg/api"
)

// Env is what an action sees while executing. Context already includes the
// values merged for the current step and the outputs of earlier actions.
type Env struct {
	Actor    api.Actor
	Context  interpolate.Context
	Platform api.Platform
}

func (e Env) render(tmpl string) string {
	return strings.TrimSpace(interpolate.Interpolate(tmpl, e.Context))
}

// renderList resolves every template; whole-token templates that hold lists
// (tags, multi-selects) are expanded element by element. Blank entries are
// dropped.
func (e Env) renderList(tmpls []string) []string {
	var out []string
	for _, tmpl := range tmpls {
		v, ok := interpolate.Value(tmpl, e.Context)
		if !ok {
			continue
		}
		switch list := v.(type) {
		case []any:
			for _, item := range list {
				if s := strings.TrimSpace(interpolate.Display(item)); s != "" {
					out = append(out, s)
				}
			}
		case []string:
			for _, s := range list {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		default:
			if s := strings.TrimSpace(interpolate.Display(v)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Outcome is the result of one executed action.
type Outcome struct {
	// Value, when non-nil, is exposed under the action's token for later
	// actions and steps.
	Value any

	RedirectOnNext     string
	RedirectOnComplete string

	// Message is the human-readable audit message.
	Message string

	// Errors are partial failures (e.g. one unknown recipient) of an action
	// that otherwise went ahead.
	Errors []*api.ActionError
}

// Action is one decoded action variant.
type Action interface {
	ID() string
	Kind() api.ActionKind
	Execute(ctx context.Context, env Env) (Outcome, error)
}

// Decode turns a definition into its typed variant. Unknown kinds and
// parameters that do not fit the kind are errors.
func Decode(def api.ActionDefinition) (Action, error) {
	var a Action
	switch def.Kind {
	case api.ActionCreateTopic:
		a = &CreateTopic{id: def.ID}
	case api.ActionSendMessage:
		a = &SendMessage{id: def.ID}
	case api.ActionUpdateProfile:
		a = &UpdateProfile{id: def.ID}
	case api.ActionCreateCategory:
		a = &CreateCategory{id: def.ID}
	case api.ActionCreateGroup:
		a = &CreateGroup{id: def.ID}
	case api.ActionAddToGroup:
		a = &AddToGroup{id: def.ID}
	case api.ActionWatchCategory:
		a = &WatchCategory{id: def.ID}
	case api.ActionRouteTo:
		a = &RouteTo{id: def.ID}
	default:
		return nil, fmt.Errorf("action %s: unknown kind %q", def.ID, def.Kind)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           a,
		TagName:          "param",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(def.Params); err != nil {
		return nil, fmt.Errorf("action %s: params: %w", def.ID, err)
	}
	return a, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e Env) actionError(a Action, target string, err error) *api.ActionError {
	return &api.ActionError{ActionID: a.ID(), Kind: a.Kind(), Target: target, Err: err}
}
