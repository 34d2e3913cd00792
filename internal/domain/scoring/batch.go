package scoring

import (
	"context"

	"github.com/phrazzld/psyche-api/internal/domain"
	"golang.org/x/sync/errgroup"
)

// BatchItem is one answer set to score.
type BatchItem struct {
	Key        string
	Instrument domain.Instrument
	Answers    []domain.AnswerRecord
}

// BatchResult pairs an item key with its outcome. Err holds per-item
// failures such as an unsupported instrument.
type BatchResult struct {
	Key    string
	Result *domain.Result
	Err    error
}

// BatchScorer scores many answer sets in parallel with bounded concurrency.
type BatchScorer struct {
	engine      Engine
	concurrency int
}

// NewBatchScorer creates a BatchScorer. A concurrency below 1 is treated as 1.
func NewBatchScorer(engine Engine, concurrency int) *BatchScorer {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchScorer{engine: engine, concurrency: concurrency}
}

// Score returns one BatchResult per item, in input order. A failing item does
// not stop the others; only context cancellation aborts the batch.
func (b *BatchScorer) Score(ctx context.Context, items []BatchItem) ([]BatchResult, error) {
	results := make([]BatchResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := b.engine.GenerateResult(item.Instrument, item.Answers)
			results[i] = BatchResult{Key: item.Key, Result: result, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
