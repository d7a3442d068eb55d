package verify

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/sketch"
)

// BatchResult is the outcome of verifying a sketch on one instance. Exactly
// one of Report and Err is set.
type BatchResult struct {
	Instance string
	Report   *Report
	Err      error
}

// Passed reports whether the sketch was checked and passed.
func (b BatchResult) Passed() bool {
	return b.Err == nil && b.Report != nil && b.Report.Passed
}

// VerifyBatch checks s on every instance, running up to jobs verifications
// at once. Each verification opens its own oracle session. Results are in
// instance order; per-instance failures are reported in the results, and
// the returned error is set only when ctx ends the batch.
func (v *Verifier) VerifyBatch(ctx context.Context, s sketch.Sketch, insts []*features.Instance, jobs int) ([]BatchResult, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]BatchResult, len(insts))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, inst := range insts {
		results[i].Instance = inst.Name()
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			r, err := v.Verify(ctx, s, inst)
			results[i].Report = r
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	passed := 0
	for _, r := range results {
		if r.Passed() {
			passed++
		}
	}
	v.logger.Info("Verified batch",
		zap.Int("instances", len(insts)),
		zap.Int("passed", passed),
		zap.Int("jobs", jobs))
	return results, ctx.Err()
}
