package solver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// GridStrategy enumerates every device count of each tier for every edge share.
// For a fixed share the objective is a sum of per-tier terms, so enumerating the edge
// tier with the cloud tier fixed and then the cloud tier is exhaustive.
// Shares are searched concurrently.
type GridStrategy struct {
	// maximum number of shares searched concurrently, GOMAXPROCS when zero
	Parallelism int
}

func (s *GridStrategy) Name() string {
	return GridStrategyName
}

func (s *GridStrategy) Search(ctx context.Context, ev *Evaluator) error {
	limit := s.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, share := range ev.Problem().shares() {
		g.Go(func() error {
			return s.searchShare(ctx, ev, share)
		})
	}
	return g.Wait()
}

func (s *GridStrategy) searchShare(ctx context.Context, ev *Evaluator, share float64) error {
	p := ev.Problem()
	scan := func(fixed Decision, set func(*Decision, int)) (*Evaluation, error) {
		var best *Evaluation
		for n := p.MinDevices; n <= p.MaxDevices; n++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d := fixed
			set(&d, n)
			e, err := ev.Evaluate(d)
			if err != nil {
				return nil, err
			}
			if less(e, best) {
				best = e
			}
		}
		return best, nil
	}

	edge, err := scan(Decision{Share: share, Cloud: p.MaxDevices}, func(d *Decision, n int) { d.Edge = n })
	if err != nil {
		return err
	}
	_, err = scan(Decision{Share: share, Edge: edge.Edge}, func(d *Decision, n int) { d.Cloud = n })
	return err
}
