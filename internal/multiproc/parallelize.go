// Package multiproc fans independent tasks out to a bounded number of
// goroutines and returns their results in input order.
package multiproc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gollh/domain/core"
	"gollh/internal"
)

// Parallelize runs fn for every argument with at most ncpu concurrent
// workers. results[i] always belongs to args[i]. The first error cancels the
// context passed to the remaining tasks and is returned.
func Parallelize[A, R any](ctx context.Context, ncpu int, args []A, fn func(ctx context.Context, arg A) (R, error)) ([]R, error) {
	if ncpu < 1 {
		return nil, core.NewValidationError("ncpu", fmt.Sprintf("must be >= 1, got %d", ncpu))
	}
	results := make([]R, len(args))
	if ncpu == 1 {
		for i, arg := range args {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r, err := fn(ctx, arg)
			if err != nil {
				return nil, fmt.Errorf("task %d: %w", i, err)
			}
			results[i] = r
		}
		return results, nil
	}

	internal.DefaultLogger.Debug("[Parallelize] running %d tasks on %d workers", len(args), ncpu)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ncpu)
	for i, arg := range args {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, arg)
			if err != nil {
				return fmt.Errorf("task %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
