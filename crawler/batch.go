package crawler

import (
	"context"
	"strings"

	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
	"github.com/cnosuke/mcp-crawl/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ItemFunc processes one batch input.
type ItemFunc func(ctx context.Context, input string) (*types.Page, error)

// RunBatch applies fn to every input on a bounded pool and returns one slot
// per input, in input order. Oversized or empty batches are rejected before
// fn is ever called. A failing item never affects its siblings.
func (c *Crawler) RunBatch(ctx context.Context, inputs []string, fn ItemFunc) ([]types.BatchItem, error) {
	if len(inputs) == 0 {
		return nil, ierrors.InvalidInput("urls must contain at least one URL")
	}
	if len(inputs) > c.cfg.MaxURLs {
		return nil, ierrors.New(ierrors.KindBatchTooLarge, "too many URLs: %d (max %d)", len(inputs), c.cfg.MaxURLs)
	}

	batchID := uuid.NewString()
	workers := min(c.cfg.MaxWorkers, len(inputs))
	zap.S().Infow("starting batch",
		"batch_id", batchID,
		"items", len(inputs),
		"workers", workers)

	items := make([]types.BatchItem, len(inputs))

	// Plain Group: a failed item must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(workers)
	for i, input := range inputs {
		g.Go(func() error {
			items[i] = runItem(ctx, batchID, i, input, fn)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Error != nil {
			failed++
		}
	}
	zap.S().Infow("batch finished",
		"batch_id", batchID,
		"items", len(items),
		"failed", failed)

	return items, nil
}

func runItem(ctx context.Context, batchID string, index int, input string, fn ItemFunc) (item types.BatchItem) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("batch item panicked",
				"batch_id", batchID,
				"index", index,
				"input", input,
				"panic", r)
			d := ierrors.Describe(ierrors.New(ierrors.KindInternal, "internal error"))
			d.Input = input
			item = types.BatchItem{Error: d}
		}
	}()

	if strings.TrimSpace(input) == "" {
		d := ierrors.Describe(ierrors.InvalidInput("url is required"))
		d.Input = input
		return types.BatchItem{Error: d}
	}

	page, err := fn(ctx, input)
	if err != nil {
		zap.S().Warnw("batch item failed",
			"batch_id", batchID,
			"index", index,
			"input", input,
			"error", err)
		d := ierrors.Describe(err)
		d.Input = input
		return types.BatchItem{Error: d}
	}
	return types.BatchItem{Success: page}
}
