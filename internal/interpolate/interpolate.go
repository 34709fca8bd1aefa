// Package interpolate substitutes submission and actor tokens into templates.
//
// Two token forms are recognised:
//
//	w{token}          a submission value: field id or action_<id> output
//	w{token.key}      a key of a structured value (e.g. w{action_8.slug})
//	u{attribute}      an actor attribute (username, name, email, ...)
//
// Interpolation is pure and never fails: unresolved tokens render as "".
package interpolate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/petrijr/wizflow/pkg/api"
)

var tokenRe = regexp.MustCompile(`([wu])\{([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\}`)

// Context is everything a template may refer to.
type Context struct {
	Values map[string]any
	Actor  api.Actor
}

// NewContext builds a Context from a submission record (which may be nil).
func NewContext(rec *api.SubmissionRecord, actor api.Actor) Context {
	c := Context{Actor: actor}
	if rec != nil {
		c.Values = rec.Values
	}
	return c
}

// Interpolate renders tmpl, replacing every token with its display value.
func Interpolate(tmpl string, c Context) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	return tokenRe.ReplaceAllStringFunc(tmpl, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		v, ok := Lookup(c, m[1], m[2])
		if !ok {
			return ""
		}
		return Display(v)
	})
}

// Value returns the raw value when tmpl consists of exactly one token, so
// structured values (uploads, lists) survive. Otherwise it returns the
// interpolated string. ok is false when the single token is unresolved or
// the rendered string is empty.
func Value(tmpl string, c Context) (any, bool) {
	trimmed := strings.TrimSpace(tmpl)
	if loc := tokenRe.FindStringSubmatchIndex(trimmed); loc != nil && loc[0] == 0 && loc[1] == len(trimmed) {
		v, ok := Lookup(c, trimmed[loc[2]:loc[3]], trimmed[loc[4]:loc[5]])
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
	s := Interpolate(tmpl, c)
	return s, s != ""
}

// Missing lists the tokens of tmpl that do not resolve, in template order.
func Missing(tmpl string, c Context) []string {
	var missing []string
	for _, m := range tokenRe.FindAllStringSubmatch(tmpl, -1) {
		if _, ok := Lookup(c, m[1], m[2]); !ok {
			missing = append(missing, m[0])
		}
	}
	return missing
}

// HasTokens reports whether tmpl contains at least one token.
func HasTokens(tmpl string) bool {
	return tokenRe.MatchString(tmpl)
}

// Lookup resolves one token. kind is "w" or "u".
func Lookup(c Context, kind, path string) (any, bool) {
	switch kind {
	case "u":
		return c.Actor.Attribute(path)
	case "w":
		parts := strings.Split(path, ".")
		v, ok := c.Values[parts[0]]
		if !ok {
			return nil, false
		}
		for _, key := range parts[1:] {
			v, ok = child(v, key)
			if !ok {
				return nil, false
			}
		}
		return v, true
	}
	return nil, false
}

func child(v any, key string) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		c, ok := m[key]
		return c, ok
	case map[string]string:
		c, ok := m[key]
		return c, ok
	case api.Upload:
		switch key {
		case "id":
			return m.ID, true
		case "url":
			return m.URL, true
		case "original_filename":
			return m.OriginalFilename, true
		}
	}
	return nil, false
}

// Display renders a submission value in its canonical text form: uploads and
// topics as their URL, categories and groups as their id, lists joined with
// ", ".
func Display(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case json.Number:
		return val.String()
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Display(item))
		}
		return strings.Join(parts, ", ")
	case api.Upload:
		return val.URL
	case map[string]any:
		for _, key := range []string{"url", "id", "name"} {
			if inner, ok := val[key]; ok {
				return Display(inner)
			}
		}
		return ""
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}
