package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/petrijr/wizflow/pkg/api"
)

const dateLayout = "2006-01-02"

// narrowValues validates raw submitted values against the step's active
// fields and converts them to their canonical JSON shape. Values for tokens
// that are not active fields of the step are dropped. Every failure is
// collected into one *api.ValidationError.
func narrowValues(step api.StepDefinition, raw map[string]any) (map[string]any, error) {
	verr := &api.ValidationError{StepID: step.ID}
	out := make(map[string]any, len(step.Fields))

	for _, f := range step.Fields {
		v, present := raw[f.ID]
		if present && v != nil {
			narrowed, err := narrow(f, v)
			if err != nil {
				verr.Add(f.ID, err.Error())
				continue
			}
			v = narrowed
		}
		if isBlank(v) {
			if f.Required {
				verr.Add(f.ID, "is required")
			}
			continue
		}
		out[f.ID] = v
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return out, nil
}

func narrow(f api.FieldDefinition, v any) (any, error) {
	switch f.Type {
	case api.FieldText, api.FieldTextarea, api.FieldComposer:
		return asString(v)
	case api.FieldURL:
		s, err := asString(v)
		if err != nil || s == "" {
			return s, err
		}
		if !strings.Contains(s, "://") && !strings.HasPrefix(s, "/") {
			return nil, fmt.Errorf("%q is not a URL", s)
		}
		return s, nil
	case api.FieldDate:
		s, err := asString(v)
		if err != nil || s == "" {
			return s, err
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, fmt.Errorf("%q is not a date (YYYY-MM-DD)", s)
		}
		return s, nil
	case api.FieldNumber:
		return asNumber(v)
	case api.FieldCheckbox:
		return asBool(v)
	case api.FieldDropdown:
		s, err := asString(v)
		if err != nil || s == "" || len(f.Choices) == 0 {
			return s, err
		}
		for _, c := range f.Choices {
			if c == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of the choices", s)
	case api.FieldUpload:
		return asUpload(v)
	case api.FieldTag, api.FieldUserSelector:
		return asList(v)
	case api.FieldCategory, api.FieldGroup:
		return asReference(v)
	}
	return v, nil
}

func asString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case float64, int, int64, json.Number, bool:
		return fmt.Sprint(val), nil
	}
	return "", fmt.Errorf("expected text, got %T", v)
}

func asNumber(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return "", nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected number, got %T", v)
}

func asBool(v any) (any, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", val)
		}
		return b, nil
	}
	return nil, fmt.Errorf("expected boolean, got %T", v)
}

// asUpload accepts an api.Upload or a map with at least a url, and returns
// the map form stored in submissions.
func asUpload(v any) (any, error) {
	var u api.Upload
	switch val := v.(type) {
	case api.Upload:
		u = val
	case map[string]any:
		if err := mapstructure.WeakDecode(val, &u); err != nil {
			return nil, fmt.Errorf("invalid upload: %v", err)
		}
	default:
		return nil, fmt.Errorf("expected upload, got %T", v)
	}
	if u.URL == "" {
		return nil, errors.New("upload has no url")
	}
	out := map[string]any{"id": float64(u.ID), "url": u.URL}
	if u.OriginalFilename != "" {
		out["original_filename"] = u.OriginalFilename
	}
	if u.Filesize != 0 {
		out["filesize"] = float64(u.Filesize)
	}
	return out, nil
}

func asList(v any) (any, error) {
	var items []string
	switch val := v.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("expected list, got %T", v)
	}

	out := make([]any, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// asReference keeps category/group references as an id or slug string, or
// as the structured object a picker submitted.
func asReference(v any) (any, error) {
	if m, ok := v.(map[string]any); ok {
		if _, hasID := m["id"]; !hasID {
			return nil, errors.New("reference has no id")
		}
		return m, nil
	}
	return asString(v)
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}
