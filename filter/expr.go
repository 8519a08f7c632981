package filter

import (
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/s0up4200/cip/cip"
)

// dateLayouts are tried in order by parseDate
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"2006",
}

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size <= 0 {
			return
		}
		if cache, err := newCompileCache(size); err == nil {
			c.cache = cache
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *compileCache
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Asset-bound helpers get placeholders with the runtime signatures
	env := make(map[string]any, len(c.helperFuncs)+8)
	maps.Copy(env, c.helperFuncs)
	maps.Copy(env, assetEnvironment(nil))

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against an asset
func (f *exprFilter) Evaluate(asset *cip.Asset) (bool, error) {
	env := make(map[string]any, len(f.helpers)+8)
	maps.Copy(env, f.helpers)
	maps.Copy(env, assetEnvironment(asset))

	result, err := expr.Run(f.program, env)
	if err != nil {
		id := ""
		if asset != nil {
			id = asset.ID()
		}
		return false, &EvaluationError{
			Expression: f.expression,
			AssetID:    id,
			Err:        err,
		}
	}

	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the helper functions that do not depend on an asset
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)

	// Date helpers
	funcs["parseDate"] = parseDate
	funcs["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	funcs["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	funcs["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	// String helpers. contains, startsWith and endsWith are operators in
	// expr, so the case-insensitive variants need other names.
	funcs["containsText"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	funcs["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	funcs["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	funcs["lower"] = strings.ToLower
	funcs["upper"] = strings.ToUpper
	funcs["now"] = time.Now

	return funcs
}

// assetEnvironment exposes the fields of asset. A nil asset yields the
// same names with empty values.
func assetEnvironment(asset *cip.Asset) map[string]any {
	fields := map[string]any{}
	id := ""
	catalog := ""
	if asset != nil {
		fields = asset.PlainFields()
		id = asset.ID()
		if asset.Catalog() != nil {
			catalog = asset.Catalog().Alias
		}
	}

	return map[string]any{
		"Asset":   fields,
		"ID":      id,
		"Catalog": catalog,
		"field": func(key string) any {
			return fields[key]
		},
		"str": func(key string) string {
			if asset == nil {
				return ""
			}
			return asset.FieldString(key)
		},
		"has": func(key string) bool {
			v, ok := fields[key]
			return ok && v != nil
		},
		"dateField": func(key string) time.Time {
			s, _ := fields[key].(string)
			return parseDate(s)
		},
	}
}

// parseDate accepts the date formats CIP installations commonly return.
// Unparseable input yields the zero time.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
