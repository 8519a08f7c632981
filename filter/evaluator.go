package filter

import (
	"context"
	"runtime"

	"github.com/s0up4200/cip/cip"
	"golang.org/x/sync/errgroup"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*Evaluator)

// WithWorkers sets the number of concurrent chunk evaluations
func WithWorkers(workers int) EvaluatorOption {
	return func(e *Evaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *Evaluator) {
		e.batchSize = size
	}
}

// Evaluator applies a filter to a list of assets
type Evaluator struct {
	workerCount int
	batchSize   int
}

// NewEvaluator creates a new evaluator
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.workerCount <= 0 {
		e.workerCount = 1
	}
	if e.batchSize <= 0 {
		e.batchSize = 1
	}

	return e
}

// Apply returns the assets matching filter in their original order. It
// stops at the first evaluation error.
func (e *Evaluator) Apply(ctx context.Context, filter CompiledFilter, assets []*cip.Asset) ([]*cip.Asset, error) {
	if len(assets) == 0 {
		return []*cip.Asset{}, nil
	}

	// For small lists, don't bother with concurrency
	if len(assets) < e.batchSize {
		return evaluateChunk(ctx, filter, assets)
	}

	return e.evaluateConcurrent(ctx, filter, assets)
}

// evaluateChunk evaluates a filter against assets sequentially
func evaluateChunk(ctx context.Context, filter CompiledFilter, assets []*cip.Asset) ([]*cip.Asset, error) {
	matches := make([]*cip.Asset, 0, len(assets)/4)
	for _, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := filter.Evaluate(asset)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, asset)
		}
	}
	return matches, nil
}

// evaluateConcurrent splits assets into chunks evaluated by up to
// workerCount goroutines
func (e *Evaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, assets []*cip.Asset) ([]*cip.Asset, error) {
	chunkSize := max(len(assets)/e.workerCount, e.batchSize)
	chunkCount := (len(assets) + chunkSize - 1) / chunkSize
	results := make([][]*cip.Asset, chunkCount)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for i := range chunkCount {
		start := i * chunkSize
		end := min(start+chunkSize, len(assets))
		g.Go(func() error {
			matches, err := evaluateChunk(ctx, filter, assets[start:end])
			if err != nil {
				return err
			}
			results[i] = matches
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	matches := make([]*cip.Asset, 0, total)
	for _, r := range results {
		matches = append(matches, r...)
	}
	return matches, nil
}
