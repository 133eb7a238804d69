package jobs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

func TestPairDirectories(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	touch(t, left, "b.pdf", "a.pdf", "notes.txt", ".cache/a.pdf", "deep/x/y.pdf")
	touch(t, right, "a.pdf", "b.pdf", "notes.txt", ".cache/a.pdf", "deep/x/y.pdf")

	pairs, orphans, err := PairDirectories(left, right, true)
	require.NoError(t, err)
	assert.Empty(t, orphans)
	require.Len(t, pairs, 3)
	assert.Equal(t, "a.pdf", pairs[0].Rel)
	assert.Equal(t, "b.pdf", pairs[1].Rel)
	assert.Equal(t, "deep/x/y.pdf", pairs[2].Rel)
	assert.Equal(t, filepath.Join(left, "deep", "x", "y.pdf"), pairs[2].Left)
	assert.Equal(t, "deep_x_y", pairs[2].Identifier())

	withHidden, _, err := PairDirectories(left, right, false)
	require.NoError(t, err)
	assert.Len(t, withHidden, 4)
}

func TestPairDirectories_Errors(t *testing.T) {
	_, _, err := PairDirectories("", t.TempDir(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	missing := filepath.Join(t.TempDir(), "missing")
	_, _, err = PairDirectories(missing, t.TempDir(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrResource)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
