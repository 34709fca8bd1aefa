// Package condition decides whether a step, field or action is active for a run.
//
// Conditions fail closed: a condition that references a value not submitted
// yet, or that is malformed, evaluates to false. Malformed conditions are
// additionally reported as *api.ConditionError so operators can notice them.
package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/petrijr/wizflow/internal/interpolate"
	"github.com/petrijr/wizflow/pkg/api"
)

// Evaluate evaluates c against the context. A nil condition is true.
//
// The returned error is either wrapped api.ErrUnresolvedReference (a normal
// "not yet" situation) or an *api.ConditionError (a broken definition). In
// both cases the result is false.
func Evaluate(c *api.Condition, ictx interpolate.Context) (bool, error) {
	if c == nil {
		return true, nil
	}
	ok, err := eval(*c, ictx)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Active evaluates c and reports malformed conditions through report, which
// may be nil. scope names the gated element for the report.
func Active(c *api.Condition, ictx interpolate.Context, scope string, report func(*api.ConditionError)) bool {
	ok, err := Evaluate(c, ictx)
	if err == nil {
		return ok
	}
	var ce *api.ConditionError
	if report != nil && errors.As(err, &ce) {
		report(&api.ConditionError{Scope: scope, Err: ce.Err})
	}
	return false
}

func malformed(format string, args ...any) error {
	return &api.ConditionError{Err: fmt.Errorf(format, args...)}
}

func eval(c api.Condition, ictx interpolate.Context) (bool, error) {
	forms := 0
	if c.Expr != "" {
		forms++
	}
	if len(c.All) > 0 {
		forms++
	}
	if len(c.Any) > 0 {
		forms++
	}
	if c.Not != nil {
		forms++
	}
	if c.Subject != "" || c.Op != "" {
		forms++
	}
	switch {
	case forms == 0:
		return false, malformed("empty condition")
	case forms > 1:
		return false, malformed("condition mixes several forms")
	}

	switch {
	case c.Expr != "":
		return evalExpr(c.Expr, ictx)
	case len(c.All) > 0:
		results, err := evalEach(c.All, ictx)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if !r {
				return false, nil
			}
		}
		return true, nil
	case len(c.Any) > 0:
		results, err := evalEach(c.Any, ictx)
		if err != nil {
			return false, err
		}
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	case c.Not != nil:
		r, err := eval(*c.Not, ictx)
		if err != nil {
			return false, err
		}
		return !r, nil
	}
	return evalLeaf(c, ictx)
}

// evalEach evaluates every branch so that an unresolved or malformed branch
// is never masked by short-circuiting. Malformed errors take precedence.
func evalEach(conds []api.Condition, ictx interpolate.Context) ([]bool, error) {
	results := make([]bool, len(conds))
	var unresolved error
	for i, sub := range conds {
		r, err := eval(sub, ictx)
		if err != nil {
			var ce *api.ConditionError
			if errors.As(err, &ce) {
				return nil, err
			}
			if unresolved == nil {
				unresolved = err
			}
			continue
		}
		results[i] = r
	}
	if unresolved != nil {
		return nil, unresolved
	}
	return results, nil
}

func evalLeaf(c api.Condition, ictx interpolate.Context) (bool, error) {
	if strings.TrimSpace(c.Subject) == "" {
		return false, malformed("operator %q without subject", c.Op)
	}
	if missing := interpolate.Missing(c.Subject, ictx); len(missing) > 0 {
		return false, fmt.Errorf("%w: %s", api.ErrUnresolvedReference, strings.Join(missing, ", "))
	}
	subject, _ := interpolate.Value(c.Subject, ictx)

	switch c.Op {
	case api.OpEq, api.OpNeq:
		if c.Value == nil {
			return false, malformed("operator %q requires value", c.Op)
		}
		eq := equal(subject, c.Value)
		if c.Op == api.OpNeq {
			return !eq, nil
		}
		return eq, nil
	case api.OpIn, api.OpNotIn:
		if len(c.Values) == 0 {
			return false, malformed("operator %q requires values", c.Op)
		}
		in := member(subject, c.Values)
		if c.Op == api.OpNotIn {
			return !in, nil
		}
		return in, nil
	case api.OpContains:
		if c.Value == nil {
			return false, malformed("operator %q requires value", c.Op)
		}
		return contains(subject, c.Value), nil
	case api.OpPresent:
		return !blank(subject), nil
	case api.OpBlank:
		return blank(subject), nil
	case "":
		return false, malformed("subject %q without operator", c.Subject)
	}
	return false, malformed("unknown operator %q", c.Op)
}

func equal(a, b any) bool {
	return interpolate.Display(a) == interpolate.Display(b)
}

// member reports whether subject (or, for list subjects, any element of it)
// equals one of values.
func member(subject any, values []any) bool {
	for _, item := range items(subject) {
		for _, v := range values {
			if equal(item, v) {
				return true
			}
		}
	}
	return false
}

func contains(subject, value any) bool {
	if s, ok := subject.(string); ok {
		return strings.Contains(s, interpolate.Display(value))
	}
	for _, item := range items(subject) {
		if equal(item, value) {
			return true
		}
	}
	return false
}

func items(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return []any{v}
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

// evalExpr runs an expr-lang expression. Submission tokens are top-level
// identifiers; actor attributes live under "user".
func evalExpr(src string, ictx interpolate.Context) (bool, error) {
	env := make(map[string]any, len(ictx.Values)+1)
	for k, v := range ictx.Values {
		env[k] = v
	}
	env["user"] = ictx.Actor.AttributeMap()

	program, err := expr.Compile(src, expr.Env(env), expr.AsBool())
	if err != nil {
		// Identifiers are only known once submitted; an unknown name means
		// the referenced field has no value yet.
		if strings.Contains(err.Error(), "unknown name") {
			return false, fmt.Errorf("%w: %v", api.ErrUnresolvedReference, err)
		}
		return false, malformed("compile %q: %v", src, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, malformed("eval %q: %v", src, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, malformed("expression %q did not return bool (got %T)", src, out)
	}
	return result, nil
}
