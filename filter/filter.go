// Package filter selects CIP assets client-side with expr-lang expressions.
//
// Expressions see the asset's fields as the map Asset, its id as ID and the
// catalog alias as Catalog. Helpers:
//
//	field(key)      raw field value, numbers as int or float64
//	str(key)        field formatted as a string
//	has(key)        field present and not null
//	dateField(key)  field parsed as a date
//	containsText, hasPrefix, hasSuffix   case-insensitive string tests
//	lower, upper, parseDate, daysSince, daysAgo, yearsAgo, now
//
// The expr operators contains, startsWith and endsWith stay available in
// their case-sensitive infix form, e.g. str("title") startsWith "Horse".
//
// Example:
//
//	containsText(str("title"), "horse") and daysSince(dateField("created")) > 365
package filter

import (
	"context"

	"github.com/s0up4200/cip/cip"
)

var defaultCompiler = NewExprCompiler(WithCache(100))

// CompileFilter compiles expression with a shared caching compiler
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// Apply compiles expression and returns the matching assets
func Apply(ctx context.Context, expression string, assets []*cip.Asset) ([]*cip.Asset, error) {
	filter, err := CompileFilter(expression)
	if err != nil {
		return nil, err
	}
	return NewEvaluator().Apply(ctx, filter, assets)
}
