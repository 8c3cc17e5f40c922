package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
)

// Runner is a pipeline that can be scheduled by RunAll.
type Runner interface {
	Kind() domain.Kind
	Run(ctx context.Context) (Result, error)
}

// RunAll runs every runner to completion and returns the results of the
// successful ones in runner order. A failing runner does not cancel the
// others. Every failure is logged and the first one is returned.
func RunAll(ctx context.Context, logger *slog.Logger, concurrent bool, runners ...Runner) ([]Result, error) {
	results := make([]Result, len(runners))
	ok := make([]bool, len(runners))

	run := func(i int) error {
		r := runners[i]
		res, err := r.Run(ctx)
		if err != nil {
			logger.Error("pipeline failed", "kind", string(r.Kind()), "error", err)
			return err
		}
		results[i], ok[i] = res, true
		return nil
	}

	var firstErr error
	if concurrent {
		var g errgroup.Group
		for i := range runners {
			g.Go(func() error { return run(i) })
		}
		firstErr = g.Wait()
	} else {
		for i := range runners {
			if err := run(i); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	done := make([]Result, 0, len(runners))
	for i, res := range results {
		if ok[i] {
			done = append(done, res)
		}
	}
	return done, firstErr
}
