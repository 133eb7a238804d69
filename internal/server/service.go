// Package server exposes comparisons and the run history over gRPC.
//
// Messages are google.protobuf.Struct values, so the service needs no
// generated code; the field names are documented on each method.
package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/export"
	"github.com/joseph-ayodele/pdf-compare/internal/jobs"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

// ComparisonService implements ComparisonServer.
type ComparisonService struct {
	exec    *jobs.Executor
	base    compare.Config
	runs    store.RunRepository
	exports *export.Service
	logger  *slog.Logger
}

// NewComparisonService serves comparisons through exec, starting every
// request from base. runs may be nil, in which case the history methods
// answer FailedPrecondition.
func NewComparisonService(exec *jobs.Executor, base compare.Config, runs store.RunRepository, logger *slog.Logger) *ComparisonService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ComparisonService{exec: exec, base: base, runs: runs, logger: logger}
	if runs != nil {
		s.exports = export.NewService(runs, logger)
	}
	return s
}

// Compare runs one comparison. Request fields: file1, file2 (required),
// identifier, options (same keys as a job file's options object).
//
// Highlighted visual comparisons are refused unless the executor has an
// image directory; images never land in a directory derived from a
// request path.
func (s *ComparisonService) Compare(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	data, err := protojson.Marshal(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pair, err := jobs.ParsePair(data)
	if err != nil {
		s.logger.Warn("compare request rejected", "error", err)
		return nil, common.StatusFromError(err)
	}
	file := &jobs.File{Pairs: []jobs.PairSpec{*pair}}
	expanded, _, err := file.Expand(s.base)
	if err != nil {
		return nil, common.StatusFromError(err)
	}
	job := expanded[0]
	if job.Config.Mode == constants.ModeVisual && job.Config.Highlight && s.exec.ImageDir() == "" {
		s.logger.Warn("compare request rejected", "identifier", job.Identifier, "reason", "highlight without image dir")
		return nil, status.Error(codes.FailedPrecondition, "highlight images need PDFCMP_IMAGE_DIR to be set on the server")
	}

	res := s.exec.Execute(ctx, job)
	if res.Err != nil {
		return nil, common.StatusFromError(res.Err)
	}
	return outcomeStruct(res)
}

// GetRun returns one recorded run with its pages. Request fields: id.
func (s *ComparisonService) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, status.Error(codes.FailedPrecondition, "run history is disabled")
	}
	raw := strings.TrimSpace(stringField(req, "id"))
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "id must be a UUID")
	}
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		s.logger.Warn("get run failed", "run_id", raw, "error", err)
		return nil, common.StatusFromError(err)
	}
	return structpb.NewStruct(map[string]any{"run": runMap(run)})
}

// ListRuns lists recent runs, newest first. Request fields: status, limit.
func (s *ComparisonService) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.runs == nil {
		return nil, status.Error(codes.FailedPrecondition, "run history is disabled")
	}
	filter, err := listFilter(req)
	if err != nil {
		return nil, err
	}
	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		s.logger.Warn("list runs failed", "error", err)
		return nil, common.StatusFromError(err)
	}
	out := make([]any, 0, len(runs))
	for _, r := range runs {
		out = append(out, runMap(r))
	}
	return structpb.NewStruct(map[string]any{"runs": out})
}

// ExportRuns returns the XLSX report of the runs ListRuns would return, as
// base64 in the xlsx field.
func (s *ComparisonService) ExportRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.exports == nil {
		return nil, status.Error(codes.FailedPrecondition, "run history is disabled")
	}
	filter, err := listFilter(req)
	if err != nil {
		return nil, err
	}
	xlsx, err := s.exports.ExportRunsXLSX(ctx, filter)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		return nil, common.StatusFromError(err)
	}
	return structpb.NewStruct(map[string]any{"xlsx": xlsx})
}

func listFilter(req *structpb.Struct) (store.ListFilter, error) {
	var f store.ListFilter
	if st := strings.TrimSpace(stringField(req, "status")); st != "" {
		f.Status = constants.RunStatus(strings.ToUpper(st))
	}
	limit := numberField(req, "limit")
	if limit < 0 {
		return f, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	f.Limit = int(limit)
	return f, nil
}
