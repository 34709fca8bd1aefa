package engine

import (
	"errors"
	"fmt"

	"github.com/petrijr/wizflow/internal/actions"
	"github.com/petrijr/wizflow/pkg/api"
)

// validateDefinition rejects definitions the engine cannot run: missing or
// duplicate ids, unknown field types and actions whose kind or parameters
// do not decode.
func validateDefinition(def api.WizardDefinition) error {
	if def.ID == "" {
		return errors.New("wizard id is required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("wizard %s must have at least one step", def.ID)
	}

	steps := make(map[string]bool)
	tokens := make(map[string]string)
	for _, step := range def.Steps {
		if step.ID == "" {
			return fmt.Errorf("wizard %s: step id is required", def.ID)
		}
		if steps[step.ID] {
			return fmt.Errorf("wizard %s: duplicate step %q", def.ID, step.ID)
		}
		steps[step.ID] = true

		for _, f := range step.Fields {
			if f.ID == "" {
				return fmt.Errorf("wizard %s step %s: field id is required", def.ID, step.ID)
			}
			if !f.Type.Valid() {
				return fmt.Errorf("wizard %s field %s: unknown type %q", def.ID, f.ID, f.Type)
			}
			if owner, dup := tokens[f.ID]; dup {
				return fmt.Errorf("wizard %s: token %q used by %s and field %s", def.ID, f.ID, owner, f.ID)
			}
			tokens[f.ID] = "field " + f.ID
		}
		for _, a := range step.Actions {
			if a.ID == "" {
				return fmt.Errorf("wizard %s step %s: action id is required", def.ID, step.ID)
			}
			if owner, dup := tokens[a.Token()]; dup {
				return fmt.Errorf("wizard %s: token %q used by %s and action %s", def.ID, a.Token(), owner, a.ID)
			}
			tokens[a.Token()] = "action " + a.ID
			if _, err := actions.Decode(a); err != nil {
				return fmt.Errorf("wizard %s: %w", def.ID, err)
			}
		}
	}
	return nil
}
