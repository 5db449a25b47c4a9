package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// FanOut calls fn for every item with at most workers calls in flight.
// The first error cancels the context passed to the remaining calls and is
// returned once all started calls have finished.
func FanOut[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	if len(items) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			return fn(gctx, item)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fan out failed: %w", err)
	}

	return ctx.Err()
}
