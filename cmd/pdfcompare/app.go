package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/export"
	"github.com/joseph-ayodele/pdf-compare/internal/jobs"
	"github.com/joseph-ayodele/pdf-compare/internal/pages"
	"github.com/joseph-ayodele/pdf-compare/internal/render"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

const (
	exitMatch    = 0
	exitMismatch = 1
	exitError    = 2
)

// newOpener is replaced in tests.
var newOpener = func(cfg common.RenderConfig, logger *slog.Logger) (compare.Opener, error) {
	return render.NewOpener(cfg, render.ExecRunner{Logger: logger}, logger)
}

type options struct {
	mode, strategy, color string
	pageSpec              string
	highlight, allPages   bool
	trim, normalize       bool
	exclude               []string
	dpi, threshold        int
	backend, textStrategy string

	count, text          bool
	saveImages, extract  bool
	jobFile, dbURL, xlsx string
	workers              int
	logLevel             string
}

func (o *options) register(fs *flag.FlagSet, cfg *common.Config) {
	fs.StringVar(&o.mode, "mode", cfg.Compare.Mode, "comparison mode: text or visual")
	fs.StringVar(&o.strategy, "strategy", cfg.Compare.Strategy, "visual strategy: exact or shift")
	fs.StringVar(&o.pageSpec, "pages", "", `page span, e.g. "3", "2-5", "4-" or "-7"`)
	fs.BoolVar(&o.highlight, "highlight", cfg.Compare.Highlight, "write highlight images for differing pages")
	fs.StringVar(&o.color, "color", cfg.Compare.HighlightColor, "highlight colour (#RRGGBB, #AARRGGBB or a name)")
	fs.BoolVar(&o.allPages, "all", cfg.Compare.AllPages, "keep comparing after the first differing page")
	fs.BoolVar(&o.trim, "trim", cfg.Compare.TrimWhitespace, "collapse whitespace before comparing text")
	fs.BoolVar(&o.normalize, "normalize", cfg.Compare.Normalize, "apply Unicode NFC normalisation to text")
	o.exclude = append(o.exclude, cfg.Compare.Exclude...)
	fs.Func("exclude", "regular expression removed from text before comparing (repeatable)", func(s string) error {
		o.exclude = append(o.exclude, s)
		return nil
	})
	fs.IntVar(&o.dpi, "dpi", cfg.Compare.DPI, "render resolution for visual mode")
	fs.IntVar(&o.threshold, "threshold", cfg.Compare.ShiftThreshold, "differing-pixel budget of the shift strategy")
	fs.StringVar(&o.backend, "backend", cfg.Render.Backend, "renderer: poppler or fitz")
	fs.StringVar(&o.textStrategy, "text-strategy", cfg.Render.TextStrategy, "text extraction: default or plain")

	fs.BoolVar(&o.count, "count", false, "print the page count of one file")
	fs.BoolVar(&o.text, "text", false, "print the text of one file")
	fs.BoolVar(&o.saveImages, "save-images", false, "render the pages of one file to PNG")
	fs.BoolVar(&o.extract, "extract-images", false, "write the images embedded in one file to PNG")
	fs.StringVar(&o.jobFile, "job", "", "run the comparisons listed in a JSON job file")
	fs.StringVar(&o.dbURL, "db", cfg.Database.DSN, "history database (postgres:// URL, SQLite path or :memory:)")
	fs.StringVar(&o.xlsx, "xlsx", "", "write the run history to this XLSX file")
	fs.IntVar(&o.workers, "workers", cfg.Jobs.Workers, "parallel comparisons in job mode")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug, info, warn or error")
}

// imageDirDefaults makes "file1 file2 image-dir" a highlighted visual
// comparison unless -mode or -highlight was given.
func (o *options) imageDirDefaults(fs *flag.FlagSet) {
	if fs.NArg() != 3 || o.jobFile != "" {
		return
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["mode"] {
		o.mode = string(constants.ModeVisual)
	}
	if !set["highlight"] {
		o.highlight = true
	}
}

// settings folds the flags back into environment-style settings.
func (o *options) settings(cfg *common.Config) {
	cfg.Compare.Mode = o.mode
	cfg.Compare.Strategy = o.strategy
	cfg.Compare.Highlight = o.highlight
	cfg.Compare.HighlightColor = o.color
	cfg.Compare.AllPages = o.allPages
	cfg.Compare.TrimWhitespace = o.trim
	cfg.Compare.Normalize = o.normalize
	cfg.Compare.Exclude = o.exclude
	cfg.Compare.DPI = o.dpi
	cfg.Compare.ShiftThreshold = o.threshold
	cfg.Render.Backend = o.backend
	cfg.Render.TextStrategy = o.textStrategy
	cfg.Database.DSN = o.dbURL
	cfg.Jobs.Workers = o.workers
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := common.LoadConfig()
	fs := flag.NewFlagSet("pdfcompare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	o.register(fs, cfg)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pdfcompare [flags] file1.pdf file2.pdf [image-dir]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitMatch
		}
		return exitError
	}
	o.imageDirDefaults(fs)
	o.settings(cfg)

	logger := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: parseLevel(o.logLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		printError(stderr, "Error: %v\n", err)
		return exitError
	}
	a, err := newApp(cfg, &o, logger)
	if err != nil {
		printError(stderr, "Error: %v\n", err)
		return exitError
	}

	code, err := a.dispatch(ctx, fs.Args(), stdout)
	if err != nil {
		logger.Error("pdfcompare failed", "error", err)
		printError(stderr, "Error: %v\n", err)
		return exitError
	}
	return code
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return l
}

type app struct {
	cfg    *common.Config
	opts   *options
	logger *slog.Logger
	opener compare.Opener
	cmp    compare.Config
	start  int
	end    int
}

func newApp(cfg *common.Config, o *options, logger *slog.Logger) (*app, error) {
	cmpCfg, err := compare.ConfigFromSettings(cfg.Compare)
	if err != nil {
		return nil, err
	}
	if cmpCfg.TextStrategy, err = render.NewTextStrategy(cfg.Render, logger); err != nil {
		return nil, err
	}
	opener, err := newOpener(cfg.Render, logger)
	if err != nil {
		return nil, err
	}
	start, end, err := pages.ParseSpec(o.pageSpec)
	if err != nil {
		return nil, common.NewAppError(common.CodeUsage, "-pages", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	return &app{cfg: cfg, opts: o, logger: logger, opener: opener, cmp: cmpCfg, start: start, end: end}, nil
}

func (a *app) dispatch(ctx context.Context, args []string, stdout io.Writer) (int, error) {
	o := a.opts
	switch {
	case o.jobFile != "":
		return a.runJobFile(ctx, stdout)
	case o.count:
		return a.single(args, func(path string) error { return a.printCount(ctx, path, stdout) })
	case o.text:
		return a.single(args, func(path string) error { return a.printText(ctx, path, stdout) })
	case o.saveImages:
		return a.singleWithDir(args, func(path string, c *compare.Comparator) ([]string, error) {
			return c.SaveFileAsImages(ctx, a.opener, path, a.start, a.end)
		}, stdout)
	case o.extract:
		return a.singleWithDir(args, func(path string, c *compare.Comparator) ([]string, error) {
			return c.ExtractFileImages(ctx, a.opener, path, a.start, a.end)
		}, stdout)
	case o.xlsx != "" && len(args) == 0:
		return exitMatch, a.exportHistory(ctx)
	}
	return a.comparePair(ctx, args, stdout)
}

func usageError(msg string) error {
	return common.NewAppError(common.CodeUsage, msg, common.ErrInvalidInput)
}

func (a *app) single(args []string, fn func(string) error) (int, error) {
	if len(args) != 1 {
		return exitError, usageError("expected exactly one file")
	}
	return exitMatch, fn(args[0])
}

func (a *app) singleWithDir(args []string, fn func(string, *compare.Comparator) ([]string, error), stdout io.Writer) (int, error) {
	if len(args) < 1 || len(args) > 2 {
		return exitError, usageError("expected a file and an optional image directory")
	}
	var opts []compare.Option
	if len(args) == 2 {
		opts = append(opts, compare.WithImageDir(args[1]))
	}
	names, err := fn(args[0], compare.New(a.cmp, a.logger, opts...))
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return exitMatch, err
}

func (a *app) printCount(ctx context.Context, path string, stdout io.Writer) error {
	doc, err := a.opener.Open(ctx, path)
	if err != nil {
		return err
	}
	defer doc.Close()
	n, err := compare.PageCount(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, n)
	return nil
}

func (a *app) printText(ctx context.Context, path string, stdout io.Writer) error {
	doc, err := a.opener.Open(ctx, path)
	if err != nil {
		return err
	}
	defer doc.Close()
	text, err := compare.ExtractText(ctx, doc, a.start, a.end, a.cmp)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, text)
	return nil
}

func (a *app) comparePair(ctx context.Context, args []string, stdout io.Writer) (int, error) {
	if len(args) < 2 || len(args) > 3 {
		return exitError, usageError("expected file1.pdf file2.pdf [image-dir]")
	}
	job := jobs.Job{
		Identifier: compare.Identifier(args[0]),
		File1:      args[0],
		File2:      args[1],
		Start:      a.start,
		End:        a.end,
		Config:     a.cmp,
	}
	dir := a.cfg.Compare.ImageDir
	if len(args) == 3 {
		dir = args[2]
	}
	var execOpts []jobs.ExecutorOption
	if dir != "" {
		execOpts = append(execOpts, jobs.WithImageDir(dir))
	}
	closeDB, err := a.withHistory(ctx, &execOpts)
	if err != nil {
		return exitError, err
	}
	defer closeDB()

	res := jobs.NewExecutor(a.opener, a.logger, execOpts...).Execute(ctx, job)
	if res.Err != nil {
		return exitError, res.Err
	}
	printOutcome(stdout, job, res.Outcome)
	if res.Outcome.Matched {
		return exitMatch, nil
	}
	return exitMismatch, nil
}

func (a *app) runJobFile(ctx context.Context, stdout io.Writer) (int, error) {
	f, err := jobs.Load(a.opts.jobFile)
	if err != nil {
		return exitError, err
	}
	list, orphans, err := f.Expand(a.cmp)
	if err != nil {
		return exitError, err
	}
	for _, o := range orphans {
		a.logger.Warn("job.orphan", "path", o)
		fmt.Fprintf(stdout, "ORPHAN %s\n", o)
	}

	var execOpts []jobs.ExecutorOption
	if a.cfg.Compare.ImageDir != "" {
		execOpts = append(execOpts, jobs.WithImageDir(a.cfg.Compare.ImageDir))
	}
	closeDB, err := a.withHistory(ctx, &execOpts)
	if err != nil {
		return exitError, err
	}
	defer closeDB()

	exec := jobs.NewExecutor(a.opener, a.logger, execOpts...)
	results, err := jobs.RunAll(ctx, exec, list, a.logger,
		jobs.WithWorkers(a.cfg.Jobs.Workers),
		jobs.WithJobTimeout(a.cfg.Jobs.JobTimeout),
	)
	if err != nil {
		return exitError, err
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stdout, "ERROR %s: %v\n", r.Job.Identifier, r.Err)
			continue
		}
		printOutcome(stdout, r.Job, r.Outcome)
	}
	sum := jobs.Summarize(results)
	fmt.Fprintf(stdout, "%d compared: %d matched, %d differ, %d failed\n", sum.Total, sum.Matched, sum.Mismatched, sum.Failed)

	if a.opts.xlsx != "" {
		if err := a.exportHistory(ctx); err != nil {
			return exitError, err
		}
	}
	switch {
	case sum.Failed > 0:
		return exitError, nil
	case sum.Mismatched > 0:
		return exitMismatch, nil
	}
	return exitMatch, nil
}

// withHistory opens the history database when one is configured and adds
// it to the executor options.
func (a *app) withHistory(ctx context.Context, execOpts *[]jobs.ExecutorOption) (func(), error) {
	if a.cfg.Database.DSN == "" {
		return func() {}, nil
	}
	db, err := openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	*execOpts = append(*execOpts, jobs.WithRunRepository(store.NewRunRepository(db, a.logger)))
	return func() { _ = db.Close() }, nil
}

func (a *app) exportHistory(ctx context.Context) error {
	if a.cfg.Database.DSN == "" {
		return usageError("-xlsx needs a history database (-db or DB_URL)")
	}
	db, err := openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	data, err := export.NewService(store.NewRunRepository(db, a.logger), a.logger).ExportRunsXLSX(ctx, store.ListFilter{Limit: 10000})
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.opts.xlsx, data, 0o644); err != nil {
		return common.ResourceError("write "+a.opts.xlsx, err)
	}
	a.logger.Info("history exported", "path", a.opts.xlsx, "bytes", len(data))
	return nil
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*store.DB, error) {
	db, err := store.Open(ctx, store.ConfigFromSettings(cfg.Database), logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func printOutcome(w io.Writer, job jobs.Job, out *compare.Outcome) {
	verdict := "MATCH"
	if !out.Matched {
		verdict = "DIFFER"
	}
	var detail []string
	if out.PageCountMismatch {
		detail = append(detail, fmt.Sprintf("page count %d vs %d", out.PageCount1, out.PageCount2))
	}
	if out.Mode == constants.ModeVisual && !out.PageCountMismatch {
		if mm := out.MismatchedPages(); len(mm) > 0 {
			detail = append(detail, fmt.Sprintf("pages %s", joinInts(mm)))
		}
	}
	for _, p := range out.Pages {
		if p.Image != "" && !p.Matched {
			detail = append(detail, "image "+p.Image)
		}
	}
	line := fmt.Sprintf("%s %s (%s, pages %s)", verdict, job.Identifier, strings.ToLower(string(out.Mode)), out.Range.String())
	if len(detail) > 0 {
		line += ": " + strings.Join(detail, "; ")
	}
	fmt.Fprintln(w, line)
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
