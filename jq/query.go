// Package jq projects asset fields with jq expressions.
package jq

import (
	"context"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/s0up4200/cip/cip"
)

// Query is a compiled jq program. It is safe for concurrent use.
type Query struct {
	expression string
	code       *gojq.Code
}

// Compile parses and compiles a jq expression
func Compile(expression string) (*Query, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}

	return &Query{expression: expression, code: code}, nil
}

// String returns the source expression
func (q *Query) String() string {
	return q.expression
}

// Run evaluates the query against one input and collects every output.
// json.Number values in the input are converted first since gojq only
// understands plain Go numbers.
func (q *Query) Run(ctx context.Context, input any) ([]any, error) {
	iter := q.code.RunWithContext(ctx, cip.PlainValue(input))

	values := make([]any, 0, 1)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq %q: %w", q.expression, err)
		}

		values = append(values, v)
	}

	return values, nil
}

// RunAssets applies the query to the fields of each asset in order
func (q *Query) RunAssets(ctx context.Context, assets []*cip.Asset) ([]any, error) {
	values := make([]any, 0, len(assets))
	for _, asset := range assets {
		out, err := q.Run(ctx, asset.PlainFields())
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.ID(), err)
		}
		values = append(values, out...)
	}
	return values, nil
}
