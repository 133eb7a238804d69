package jobs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/pdf-compare/constants"
	"github.com/joseph-ayodele/pdf-compare/internal/common"
)

// Pair is a document present under the same relative path in both trees.
type Pair struct {
	Rel   string
	Left  string
	Right string
}

// Identifier names the pair after its relative path, so that equally named
// files in different subdirectories do not collide.
func (p Pair) Identifier() string {
	rel := filepath.ToSlash(constants.TrimPDFExt(p.Rel))
	return strings.ReplaceAll(rel, "/", "_")
}

// PairDirectories walks both roots and pairs PDFs by relative path. Paths
// found on only one side are returned as orphans, prefixed with "left:" or
// "right:". Results are sorted by relative path.
func PairDirectories(left, right string, skipHidden bool) ([]Pair, []string, error) {
	if strings.TrimSpace(left) == "" || strings.TrimSpace(right) == "" {
		return nil, nil, common.NewAppError(common.CodeUsage, "both directories are required", common.ErrInvalidInput)
	}
	leftFiles, err := collectPDFs(left, skipHidden)
	if err != nil {
		return nil, nil, err
	}
	rightFiles, err := collectPDFs(right, skipHidden)
	if err != nil {
		return nil, nil, err
	}

	var (
		pairs   []Pair
		orphans []string
	)
	for rel, path := range leftFiles {
		other, ok := rightFiles[rel]
		if !ok {
			orphans = append(orphans, "left:"+rel)
			continue
		}
		pairs = append(pairs, Pair{Rel: rel, Left: path, Right: other})
	}
	for rel := range rightFiles {
		if _, ok := leftFiles[rel]; !ok {
			orphans = append(orphans, "right:"+rel)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Rel < pairs[j].Rel })
	sort.Strings(orphans)
	return pairs, orphans, nil
}

// collectPDFs maps slash-separated relative paths to full paths.
func collectPDFs(root string, skipHidden bool) (map[string]string, error) {
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			// unreadable entries below the root are skipped
			return nil
		}
		if skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsPDFExt(filepath.Ext(path)) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = path
		return nil
	})
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, common.ResourceError(fmt.Sprintf("walk %s", root), err)
		}
		return nil, fmt.Errorf("walk: %w", err)
	}
	return out, nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
