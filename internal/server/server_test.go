package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
	"github.com/joseph-ayodele/pdf-compare/internal/compare"
	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
	"github.com/joseph-ayodele/pdf-compare/internal/jobs"
	"github.com/joseph-ayodele/pdf-compare/internal/store"
)

type textDoc struct{ texts []string }

func (d *textDoc) PageCount(context.Context) (int, error) { return len(d.texts), nil }
func (d *textDoc) RenderPage(_ context.Context, index, _ int) (*imaging.PixelBuffer, error) {
	img := imaging.New(4, 4)
	img.Pix[len(d.texts[index])%len(img.Pix)] = imaging.Black
	return img, nil
}
func (d *textDoc) ExtractText(_ context.Context, start, end int) (string, error) {
	return strings.Join(d.texts[start-1:end], "\n"), nil
}
func (d *textDoc) Close() error { return nil }

var library = map[string][]string{
	"same1.pdf": {"one", "two"},
	"same2.pdf": {"one", "two"},
	"diff.pdf":  {"one", "three"},
}

func openLibrary(_ context.Context, path string) (compare.Document, error) {
	texts, ok := library[path]
	if !ok {
		return nil, common.ResourceError("open "+path, os.ErrNotExist)
	}
	return &textDoc{texts: texts}, nil
}

type harness struct {
	client *Client
	conn   *grpc.ClientConn
}

func newHarness(t *testing.T, withStore bool, execOpts ...jobs.ExecutorOption) *harness {
	t.Helper()
	ctx := context.Background()

	var runs store.RunRepository
	if withStore {
		db, err := store.Open(ctx, store.Config{DSN: ":memory:"}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		require.NoError(t, db.Migrate(ctx))
		runs = store.NewRunRepository(db, nil)
	}
	if runs != nil {
		execOpts = append(execOpts, jobs.WithRunRepository(runs))
	}
	exec := jobs.NewExecutor(compare.OpenerFunc(openLibrary), nil, execOpts...)
	svc := NewComparisonService(exec, compare.DefaultConfig(), runs, nil)

	gs, _ := NewGRPCServer(svc, nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{client: NewClient(conn), conn: conn}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestCompare_RecordsAndFetchesRun(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	resp, err := h.client.Compare(ctx, mustStruct(t, map[string]any{"file1": "same1.pdf", "file2": "same2.pdf"}))
	require.NoError(t, err)
	fields := resp.GetFields()
	assert.True(t, fields["matched"].GetBoolValue())
	assert.Equal(t, "TEXT", fields["mode"].GetStringValue())
	assert.Equal(t, "same1", fields["identifier"].GetStringValue())
	assert.Equal(t, float64(2), fields["end_page"].GetNumberValue())
	runID := fields["run_id"].GetStringValue()
	require.NotEmpty(t, runID)

	got, err := h.client.GetRun(ctx, mustStruct(t, map[string]any{"id": runID}))
	require.NoError(t, err)
	run := got.GetFields()["run"].GetStructValue().GetFields()
	assert.Equal(t, "MATCHED", run["status"].GetStringValue())
	assert.Equal(t, "same2.pdf", run["file2"].GetStringValue())
}

func TestCompare_Mismatch(t *testing.T) {
	h := newHarness(t, false)
	resp, err := h.client.Compare(context.Background(), mustStruct(t, map[string]any{
		"file1":   "same1.pdf",
		"file2":   "diff.pdf",
		"options": map[string]any{"start_page": 1, "end_page": 1},
	}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["matched"].GetBoolValue(), "page 1 is identical")
	_, hasRun := resp.GetFields()["run_id"]
	assert.False(t, hasRun)

	resp, err = h.client.Compare(context.Background(), mustStruct(t, map[string]any{"file1": "same1.pdf", "file2": "diff.pdf"}))
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["matched"].GetBoolValue())
}

func TestCompare_HighlightNeedsServerImageDir(t *testing.T) {
	root := t.TempDir()
	important := filepath.Join(root, "temp", "important.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(important), 0o755))
	require.NoError(t, os.WriteFile(important, []byte("keep"), 0o644))
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.client.Compare(ctx, mustStruct(t, map[string]any{
		"file1":   "same1.pdf",
		"file2":   filepath.Join(root, "does-not-exist.pdf"),
		"options": map[string]any{"mode": "visual", "highlight": true},
	}))
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Contains(t, status.Convert(err).Message(), "PDFCMP_IMAGE_DIR")
	assert.FileExists(t, important)

	resp, err := h.client.Compare(ctx, mustStruct(t, map[string]any{
		"file1":   "same1.pdf",
		"file2":   "diff.pdf",
		"options": map[string]any{"mode": "visual"},
	}))
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["matched"].GetBoolValue())
}

func TestCompare_HighlightWritesToServerImageDir(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, false, jobs.WithImageDir(dir))

	resp, err := h.client.Compare(context.Background(), mustStruct(t, map[string]any{
		"file1":   "same1.pdf",
		"file2":   "diff.pdf",
		"options": map[string]any{"mode": "visual", "highlight": true},
	}))
	require.NoError(t, err)
	assert.False(t, resp.GetFields()["matched"].GetBoolValue())
	assert.FileExists(t, filepath.Join(dir, "same1_2_diff.png"))
}

func TestCompare_ErrorCodes(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.client.Compare(ctx, mustStruct(t, map[string]any{"file1": "same1.pdf"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Compare(ctx, mustStruct(t, map[string]any{
		"file1": "same1.pdf", "file2": "same2.pdf",
		"options": map[string]any{"strategy": "fuzzy"},
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Compare(ctx, mustStruct(t, map[string]any{"file1": "missing.pdf", "file2": "same2.pdf"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = h.client.ListRuns(ctx, mustStruct(t, nil))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "history disabled")
}

func TestGetRun_Validation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	_, err := h.client.GetRun(ctx, mustStruct(t, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.GetRun(ctx, mustStruct(t, map[string]any{"id": "not-a-uuid"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.GetRun(ctx, mustStruct(t, map[string]any{"id": "7a1d2b4c-0000-4000-8000-000000000000"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListAndExportRuns(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	for _, f2 := range []string{"same2.pdf", "diff.pdf", "diff.pdf"} {
		_, err := h.client.Compare(ctx, mustStruct(t, map[string]any{"file1": "same1.pdf", "file2": f2}))
		require.NoError(t, err)
	}

	resp, err := h.client.ListRuns(ctx, mustStruct(t, map[string]any{"status": "mismatched"}))
	require.NoError(t, err)
	assert.Len(t, resp.GetFields()["runs"].GetListValue().GetValues(), 2)

	resp, err = h.client.ListRuns(ctx, mustStruct(t, map[string]any{"limit": 1}))
	require.NoError(t, err)
	assert.Len(t, resp.GetFields()["runs"].GetListValue().GetValues(), 1)

	_, err = h.client.ListRuns(ctx, mustStruct(t, map[string]any{"limit": -1}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	resp, err = h.client.ExportRuns(ctx, mustStruct(t, nil))
	require.NoError(t, err)
	xlsx, err := base64.StdEncoding.DecodeString(resp.GetFields()["xlsx"].GetStringValue())
	require.NoError(t, err)
	assert.True(t, len(xlsx) > 4 && string(xlsx[:2]) == "PK", "xlsx is a zip archive")
}

func TestHealthAndRequestID(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	hc := healthpb.NewHealthClient(h.conn)
	for _, svc := range []string{"", ServiceName} {
		resp, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus(), fmt.Sprintf("service %q", svc))
	}

	var header metadata.MD
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, "req-42")
	_, err := h.client.Compare(ctx, mustStruct(t, map[string]any{"file1": "same1.pdf", "file2": "same2.pdf"}), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get(RequestIDHeader))
}
