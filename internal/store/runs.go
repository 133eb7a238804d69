package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
)

const (
	runsTable  = "comparison_runs"
	pagesTable = "comparison_pages"
)

// Run is one recorded comparison.
type Run struct {
	ID              uuid.UUID
	Identifier      string
	File1           string
	File2           string
	Mode            constants.CompareMode
	Strategy        constants.DiffStrategy
	Status          constants.RunStatus
	StartPage       int
	EndPage         int
	PageCount1      int
	PageCount2      int
	MismatchedPages int
	ErrorMessage    string
	StartedAt       time.Time
	FinishedAt      time.Time
	Duration        time.Duration
	Pages           []Page
}

// Page is the stored verdict for one page of a visual run.
type Page struct {
	Page      int
	Matched   bool
	Differing int
	Image     string
}

// NewRun describes a comparison about to start.
type NewRun struct {
	Identifier string
	File1      string
	File2      string
	Mode       constants.CompareMode
	Strategy   constants.DiffStrategy
	StartPage  int
	EndPage    int
}

// ListFilter narrows List. The zero value returns the 50 newest runs.
type ListFilter struct {
	Status constants.RunStatus
	Limit  int
	Since  time.Time
}

type RunRepository interface {
	Start(ctx context.Context, in NewRun) (*Run, error)
	Finish(ctx context.Context, id uuid.UUID, out *compare.Outcome) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, f ListFilter) ([]*Run, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.dialect)
}

var runColumns = []string{
	"id", "identifier", "file1", "file2", "mode", "strategy", "status",
	"start_page", "end_page", "page_count1", "page_count2", "mismatched_pages",
	"error_message", "started_at", "finished_at", "duration_ms",
}

func (r *runRepo) Start(ctx context.Context, in NewRun) (*Run, error) {
	run := &Run{
		ID:         uuid.New(),
		Identifier: in.Identifier,
		File1:      in.File1,
		File2:      in.File2,
		Mode:       in.Mode,
		Strategy:   in.Strategy,
		Status:     constants.RunStatusRunning,
		StartPage:  in.StartPage,
		EndPage:    in.EndPage,
		StartedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	q, args := r.builder().Insert(runsTable).
		Columns(runColumns...).
		Values(
			run.ID.String(), run.Identifier, run.File1, run.File2, string(run.Mode), string(run.Strategy), string(run.Status),
			run.StartPage, run.EndPage, 0, 0, 0,
			"", run.StartedAt.UnixMilli(), int64(0), int64(0),
		).
		Query()
	if err := r.db.drv.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("comparison_run start failed", "identifier", in.Identifier, "err", err)
		return nil, storeError("start run", err)
	}
	r.log.Info("comparison_run started", "run_id", run.ID, "identifier", in.Identifier, "mode", in.Mode)
	return run, nil
}

func (r *runRepo) Finish(ctx context.Context, id uuid.UUID, out *compare.Outcome) error {
	if out == nil {
		return common.NewAppError(common.CodeUsage, "nil outcome", common.ErrInvalidInput)
	}
	now := time.Now().UTC()
	status := constants.StatusFor(out.Matched)

	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		return storeError("begin", err)
	}
	if err := r.finishTx(ctx, tx, id, out, status, now); err != nil {
		_ = tx.Rollback()
		r.log.Error("comparison_run finish failed", "run_id", id, "err", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeError("commit", err)
	}
	r.log.Info("comparison_run finished", "run_id", id, "status", status, "pages", len(out.Pages))
	return nil
}

func (r *runRepo) finishTx(ctx context.Context, tx dialect.Tx, id uuid.UUID, out *compare.Outcome, status constants.RunStatus, now time.Time) error {
	start, end := out.Range.Start, out.Range.End
	q, args := r.builder().Update(runsTable).
		Set("status", string(status)).
		Set("mode", string(out.Mode)).
		Set("start_page", start).
		Set("end_page", end).
		Set("page_count1", out.PageCount1).
		Set("page_count2", out.PageCount2).
		Set("mismatched_pages", len(out.MismatchedPages())).
		Set("finished_at", now.UnixMilli()).
		Set("duration_ms", out.Duration.Milliseconds()).
		Where(entsql.EQ("id", id.String())).
		Query()
	var res entsqlResult
	if err := tx.Exec(ctx, q, args, &res.Result); err != nil {
		return storeError("update run", err)
	}
	if err := res.requireOne(id); err != nil {
		return err
	}

	if len(out.Pages) == 0 {
		return nil
	}
	ins := r.builder().Insert(pagesTable).Columns("run_id", "page", "matched", "differing", "image")
	for _, p := range out.Pages {
		ins.Values(id.String(), p.Page, boolToInt(p.Matched), p.Differing, p.Image)
	}
	q, args = ins.Query()
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		return storeError("insert pages", err)
	}
	return nil
}

func (r *runRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	q, args := r.builder().Update(runsTable).
		Set("status", string(constants.RunStatusFailed)).
		Set("error_message", message).
		Set("finished_at", time.Now().UTC().UnixMilli()).
		Where(entsql.EQ("id", id.String())).
		Query()
	var res entsqlResult
	if err := r.db.drv.Exec(ctx, q, args, &res.Result); err != nil {
		r.log.Error("comparison_run finish(FAILED) failed", "run_id", id, "err", err)
		return storeError("fail run", err)
	}
	if err := res.requireOne(id); err != nil {
		return err
	}
	r.log.Warn("comparison_run finished (FAILED)", "run_id", id, "error", message)
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	b := r.builder()
	q, args := b.Select(runColumns...).
		From(b.Table(runsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()
	runs, err := r.queryRuns(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, common.NewAppError(common.CodeStore, fmt.Sprintf("run %s", id), common.ErrNotFound)
	}
	run := runs[0]
	if run.Pages, err = r.pages(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (r *runRepo) List(ctx context.Context, f ListFilter) ([]*Run, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	b := r.builder()
	sel := b.Select(runColumns...).
		From(b.Table(runsTable)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id")).
		Limit(limit)
	var preds []*entsql.Predicate
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	if !f.Since.IsZero() {
		preds = append(preds, entsql.GTE("started_at", f.Since.UnixMilli()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	q, args := sel.Query()
	return r.queryRuns(ctx, q, args)
}

func (r *runRepo) queryRuns(ctx context.Context, q string, args []any) ([]*Run, error) {
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, storeError("query runs", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var (
			run                       Run
			id, mode, strategy, state string
			started, finished, durMS  int64
		)
		if err := rows.Scan(
			&id, &run.Identifier, &run.File1, &run.File2, &mode, &strategy, &state,
			&run.StartPage, &run.EndPage, &run.PageCount1, &run.PageCount2, &run.MismatchedPages,
			&run.ErrorMessage, &started, &finished, &durMS,
		); err != nil {
			return nil, storeError("scan run", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, storeError("scan run", err)
		}
		run.ID = parsed
		run.Mode = constants.CompareMode(mode)
		run.Strategy = constants.DiffStrategy(strategy)
		run.Status = constants.RunStatus(state)
		run.StartedAt = time.UnixMilli(started).UTC()
		if finished > 0 {
			run.FinishedAt = time.UnixMilli(finished).UTC()
		}
		run.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query runs", err)
	}
	return out, nil
}

func (r *runRepo) pages(ctx context.Context, id uuid.UUID) ([]Page, error) {
	b := r.builder()
	q, args := b.Select("page", "matched", "differing", "image").
		From(b.Table(pagesTable)).
		Where(entsql.EQ("run_id", id.String())).
		OrderBy("page").
		Query()
	var rows entsql.Rows
	if err := r.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, storeError("query pages", err)
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var (
			p       Page
			matched int
		)
		if err := rows.Scan(&p.Page, &matched, &p.Differing, &p.Image); err != nil {
			return nil, storeError("scan page", err)
		}
		p.Matched = matched != 0
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query pages", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func storeError(op string, err error) error {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return common.NewAppError(common.CodeStore, op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}
