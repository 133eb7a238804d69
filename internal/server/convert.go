package server

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pdf-compare/internal/jobs"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func numberField(s *structpb.Struct, key string) float64 {
	if s == nil {
		return 0
	}
	return s.GetFields()[key].GetNumberValue()
}

func outcomeStruct(res jobs.Result) (*structpb.Struct, error) {
	out := res.Outcome
	mismatched := make([]any, 0)
	for _, p := range out.MismatchedPages() {
		mismatched = append(mismatched, p)
	}
	pageList := make([]any, 0, len(out.Pages))
	for _, p := range out.Pages {
		pageList = append(pageList, map[string]any{
			"page":      p.Page,
			"matched":   p.Matched,
			"differing": p.Differing,
			"image":     p.Image,
		})
	}
	listenerErrors := make([]any, 0, len(out.ListenerErrors))
	for _, err := range out.ListenerErrors {
		listenerErrors = append(listenerErrors, err.Error())
	}
	m := map[string]any{
		"identifier":          res.Job.Identifier,
		"matched":             out.Matched,
		"mode":                string(out.Mode),
		"page_count_mismatch": out.PageCountMismatch,
		"page_count1":         out.PageCount1,
		"page_count2":         out.PageCount2,
		"start_page":          out.Range.Start,
		"end_page":            out.Range.End,
		"mismatched_pages":    mismatched,
		"pages":               pageList,
		"listener_errors":     listenerErrors,
		"duration_ms":         out.Duration.Milliseconds(),
	}
	if res.RunID != uuid.Nil {
		m["run_id"] = res.RunID.String()
	}
	return structpb.NewStruct(m)
}

func runMap(r *store.Run) map[string]any {
	pageList := make([]any, 0, len(r.Pages))
	for _, p := range r.Pages {
		pageList = append(pageList, map[string]any{
			"page":      p.Page,
			"matched":   p.Matched,
			"differing": p.Differing,
			"image":     p.Image,
		})
	}
	m := map[string]any{
		"id":               r.ID.String(),
		"identifier":       r.Identifier,
		"file1":            r.File1,
		"file2":            r.File2,
		"mode":             string(r.Mode),
		"strategy":         string(r.Strategy),
		"status":           string(r.Status),
		"start_page":       r.StartPage,
		"end_page":         r.EndPage,
		"page_count1":      r.PageCount1,
		"page_count2":      r.PageCount2,
		"mismatched_pages": r.MismatchedPages,
		"error":            r.ErrorMessage,
		"started_at":       r.StartedAt.Format(time.RFC3339Nano),
		"duration_ms":      r.Duration.Milliseconds(),
		"pages":            pageList,
	}
	if !r.FinishedAt.IsZero() {
		m["finished_at"] = r.FinishedAt.Format(time.RFC3339Nano)
	}
	return m
}
