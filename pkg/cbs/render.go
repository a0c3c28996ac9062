package cbs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nickandperla.net/cbs/internal/eval"
)

// Job is one template for RenderAll.
type Job struct {
	ID     string // Assigned a UUID when empty
	Source string
	// Context for the job. Jobs that share a Context race on its variables
	// unless Isolate is set.
	Context *Context
	// Isolate evaluates against a clone of Context, leaving it untouched.
	Isolate bool
}

// Rendered is a job's outcome, in the same position as its Job.
type Rendered struct {
	ID     string
	Result *Result
}

// RenderAll evaluates jobs concurrently on at most WithWorkers goroutines.
// It stops scheduling when ctx is done and returns ctx's error; jobs that
// never ran have a nil Result.
func (r *Runtime) RenderAll(ctx context.Context, jobs []Job) ([]Rendered, error) {
	out := make([]Rendered, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}

	for i, job := range jobs {
		out[i].ID = job.ID
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		id := out[i].ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ec := job.Context
			switch {
			case ec == nil:
				ec = eval.NewContext()
			case job.Isolate:
				ec = ec.Clone()
			}
			start := time.Now()
			res := r.evaluator.Evaluate(job.Source, ec)
			out[i].Result = res
			r.logger.Debug("rendered job",
				zap.String("job", id),
				zap.Duration("elapsed", time.Since(start)),
				zap.Int("errors", len(res.Errors)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	// Cancelled before any goroutine noticed
	return out, ctx.Err()
}
