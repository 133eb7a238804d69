package compare

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/joseph-ayodele/pdf-compare/internal/imaging"
)

// DirectoryListener writes each image to Dir as <name>.png. Dir is created
// when the first image arrives; existing files in it are left alone.
type DirectoryListener struct {
	Dir    string
	logger *slog.Logger

	mu    sync.Mutex
	ready bool
}

func NewDirectoryListener(dir string, logger *slog.Logger) *DirectoryListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryListener{Dir: dir, logger: logger}
}

// Path is the file an image called name is written to.
func (l *DirectoryListener) Path(name string) string {
	return filepath.Join(l.Dir, name+".png")
}

func (l *DirectoryListener) ImageGenerated(_ context.Context, img *imaging.PixelBuffer, name string) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	path := l.Path(name)
	if err := imaging.WritePNGFile(path, img); err != nil {
		return err
	}
	l.logger.Debug("image saved", "path", path)
	return nil
}

type chain []ImageListener

func (c chain) ImageGenerated(ctx context.Context, img *imaging.PixelBuffer, name string) error {
	var errs []error
	for _, l := range c {
		if err := l.ImageGenerated(ctx, img, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChainListeners dispatches to every listener in order, skipping nil
// entries and repeats of the same listener. Every listener is called even
// if an earlier one fails; the failures are joined. It returns nil when no
// listener remains.
func ChainListeners(ls ...ImageListener) ImageListener {
	var out chain
	for _, l := range ls {
		if isNil(l) || containsListener(out, l) {
			continue
		}
		out = append(out, l)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func containsListener(list []ImageListener, l ImageListener) bool {
	t := reflect.TypeOf(l)
	if !t.Comparable() {
		return false
	}
	for _, existing := range list {
		if reflect.TypeOf(existing) == t && existing == l {
			return true
		}
	}
	return false
}

func isNil(l ImageListener) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// DefaultImageDir is the directory images of a file-path comparison land in
// when none was configured: a "temp" directory next to file.
func DefaultImageDir(file string) string {
	return filepath.Join(filepath.Dir(file), "temp")
}

func (l *DirectoryListener) ensureDir() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return nil
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return err
	}
	l.ready = true
	return nil
}
