package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

func TestChainListenersSkipsNilAndDuplicates(t *testing.T) {
	rec := &recorder{}
	var typedNil *recorder

	assert.Nil(t, ChainListeners())
	assert.Nil(t, ChainListeners(nil, typedNil))
	assert.Same(t, rec, ChainListeners(nil, rec, rec))

	other := &recorder{}
	l := ChainListeners(rec, other, rec)
	require.NoError(t, l.ImageGenerated(context.Background(), imaging.New(1, 1), "p_1_diff"))
	assert.Equal(t, []string{"p_1_diff"}, rec.Names())
	assert.Equal(t, []string{"p_1_diff"}, other.Names())
}

func TestChainListenersAcceptsFuncs(t *testing.T) {
	calls := 0
	fn := ListenerFunc(func(context.Context, *imaging.PixelBuffer, string) error {
		calls++
		return nil
	})
	l := ChainListeners(fn, fn)
	require.NoError(t, l.ImageGenerated(context.Background(), imaging.New(1, 1), "x"))
	assert.Equal(t, 2, calls)
}

func TestChainListenersCallsEveryoneAndJoinsErrors(t *testing.T) {
	first := &recorder{err: errors.New("first")}
	second := &recorder{}

	err := ChainListeners(first, second).ImageGenerated(context.Background(), imaging.New(1, 1), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Equal(t, []string{"x"}, second.Names())
}

func TestDirectoryListener(t *testing.T) {
	dir := t.TempDir()
	l := NewDirectoryListener(dir, nil)
	img := markedPage()

	require.NoError(t, l.ImageGenerated(context.Background(), img, "doc_3_diff"))
	assert.Equal(t, filepath.Join(dir, "doc_3_diff.png"), l.Path("doc_3_diff"))

	back, err := imaging.DecodeFile(l.Path("doc_3_diff"))
	require.NoError(t, err)
	assert.True(t, img.Equal(back))

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	blocked := NewDirectoryListener(filepath.Join(blocker, "temp"), nil)
	assert.Error(t, blocked.ImageGenerated(context.Background(), img, "x"))
}

func TestDirectoryListenerCreatesDirLazilyAndKeepsContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "temp")
	l := NewDirectoryListener(dir, nil)
	assert.NoDirExists(t, dir)

	require.NoError(t, l.ImageGenerated(context.Background(), markedPage(), "a_1_diff"))
	assert.FileExists(t, filepath.Join(dir, "a_1_diff.png"))

	keep := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))
	again := NewDirectoryListener(dir, nil)
	require.NoError(t, again.ImageGenerated(context.Background(), markedPage(), "b_1_diff"))
	assert.FileExists(t, keep)
	assert.FileExists(t, filepath.Join(dir, "a_1_diff.png"))
}

func TestDefaultImageDir(t *testing.T) {
	assert.Equal(t, filepath.Join("reports", "v2", "temp"), DefaultImageDir(filepath.Join("reports", "v2", "out.pdf")))
}
