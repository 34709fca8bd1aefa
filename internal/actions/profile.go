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

// UpdateProfile sets actor profile attributes (bio, location, background
// images, ...) from submitted values. Attributes whose value is absent are
// skipped; with nothing to set the action is a no-op.
type UpdateProfile struct {
	id string

	// Fields maps a profile attribute to a template.
	Fields map[string]string `param:"fields"`
}

func (a *UpdateProfile) ID() string           { return a.id }
func (a *UpdateProfile) Kind() api.ActionKind { return api.ActionUpdateProfile }

func (a *UpdateProfile) Execute(ctx context.Context, env Env) (Outcome, error) {
	attrs := make(map[string]any)
	for _, attr := range sortedKeys(a.Fields) {
		v, ok := interpolate.Value(a.Fields[attr], env.Context)
		if !ok {
			continue
		}
		if upload, isUpload := asUpload(v); isUpload {
			attrs[attr] = upload
			continue
		}
		if s := strings.TrimSpace(interpolate.Display(v)); s != "" {
			attrs[attr] = s
		}
	}
	if len(attrs) == 0 {
		return Outcome{Message: "no profile attributes to update"}, nil
	}

	if err := env.Platform.UpdateProfile(ctx, env.Actor.ID, attrs); err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: fmt.Sprintf("updated profile of %s (%s)", env.Actor.Username, strings.Join(mapKeys(attrs), ", "))}, nil
}

func asUpload(v any) (api.Upload, bool) {
	switch val := v.(type) {
	case api.Upload:
		return val, true
	case map[string]any:
		if _, ok := val["url"]; !ok {
			return api.Upload{}, false
		}
		var u api.Upload
		if err := mapstructure.WeakDecode(val, &u); err != nil {
			return api.Upload{}, false
		}
		return u, true
	}
	return api.Upload{}, false
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
