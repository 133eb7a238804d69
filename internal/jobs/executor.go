package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

// Result is the outcome of one executed job.
type Result struct {
	Job     Job
	RunID   uuid.UUID // uuid.Nil when no history store is configured
	Outcome *compare.Outcome
	Err     error
}

// Matched reports a successful comparison that found no difference.
func (r Result) Matched() bool {
	return r.Err == nil && r.Outcome != nil && r.Outcome.Matched
}

// Executor runs single jobs. It is safe for concurrent use: each call
// builds its own Comparator from the job's Config.
type Executor struct {
	opener   compare.Opener
	runs     store.RunRepository
	logger   *slog.Logger
	imageDir string
	listener compare.ImageListener
}

type ExecutorOption func(*Executor)

// WithRunRepository records every job as a comparison run.
func WithRunRepository(r store.RunRepository) ExecutorOption {
	return func(e *Executor) { e.runs = r }
}

// WithImageDir writes generated images under dir instead of the default
// directory next to each second file.
func WithImageDir(dir string) ExecutorOption {
	return func(e *Executor) { e.imageDir = dir }
}

func WithImageListener(l compare.ImageListener) ExecutorOption {
	return func(e *Executor) { e.listener = l }
}

func NewExecutor(opener compare.Opener, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{opener: opener, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ImageDir is the directory configured with WithImageDir, empty when images
// go next to each second file.
func (e *Executor) ImageDir() string { return e.imageDir }

// Execute compares one pair. Failures are reported on the Result and, when
// a store is configured, recorded as a FAILED run.
func (e *Executor) Execute(ctx context.Context, job Job) Result {
	res := Result{Job: job}
	start := time.Now()

	if e.runs != nil {
		run, err := e.runs.Start(ctx, store.NewRun{
			Identifier: job.Identifier,
			File1:      job.File1,
			File2:      job.File2,
			Mode:       job.Config.Mode,
			Strategy:   job.Config.Strategy,
			StartPage:  job.Start,
			EndPage:    job.End,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.RunID = run.ID
		ctx = common.WithRunID(ctx, run.ID.String())
	}

	opts := []compare.Option{compare.WithListener(e.listener), compare.WithIdentifier(job.Identifier)}
	if e.imageDir != "" {
		opts = append(opts, compare.WithImageDir(e.imageDir))
	}
	cmp := compare.New(job.Config, e.logger.With("identifier", job.Identifier), opts...)
	res.Outcome, res.Err = cmp.CompareFiles(ctx, e.opener, job.File1, job.File2, job.Start, job.End)

	if e.runs != nil {
		// the run is closed even when the job context has expired
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		var err error
		if res.Err != nil {
			err = e.runs.FinishFailure(recordCtx, res.RunID, res.Err.Error())
		} else {
			err = e.runs.Finish(recordCtx, res.RunID, res.Outcome)
		}
		if err != nil {
			e.logger.Error("jobs.record.failed", "identifier", job.Identifier, "run_id", res.RunID, "err", err)
		}
	}

	if res.Err != nil {
		e.logger.Error("jobs.execute.failed",
			"identifier", job.Identifier,
			"duration_ms", time.Since(start).Milliseconds(),
			"err", res.Err,
		)
	} else {
		e.logger.Info("jobs.execute.done",
			"identifier", job.Identifier,
			"matched", res.Outcome.Matched,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return res
}
