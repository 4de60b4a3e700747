package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// dirPrefixLen is how many characters of an input's base name are used to
// name its temp directory.
const dirPrefixLen = 10

// Workspace owns the temp directories of one run and removes them on Release.
type Workspace struct {
	mu     sync.Mutex
	base   string
	keep   bool
	dirs   []string
	logger *zap.Logger
}

// NewWorkspace creates directories under base (the system temp dir when
// empty). With keep set, Release leaves them in place.
func NewWorkspace(base string, keep bool, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{base: base, keep: keep, logger: logger}
}

// Dir creates a fresh directory whose name starts with prefix.
func (w *Workspace) Dir(prefix string) (string, error) {
	if w.base != "" {
		if err := os.MkdirAll(w.base, 0o755); err != nil {
			return "", err
		}
	}
	dir, err := os.MkdirTemp(w.base, prefix+"-")
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	w.dirs = append(w.dirs, dir)
	w.mu.Unlock()

	w.logger.Debug("temp directory created", zap.String("path", dir))
	return dir, nil
}

// Dirs returns the directories created so far.
func (w *Workspace) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.dirs...)
}

// Release removes every directory created by Dir. It is safe to call more
// than once.
func (w *Workspace) Release() error {
	w.mu.Lock()
	dirs := w.dirs
	w.dirs = nil
	w.mu.Unlock()

	if w.keep {
		for _, dir := range dirs {
			w.logger.Info("keeping temp directory", zap.String("path", dir))
		}
		return nil
	}

	var errs []error
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
			continue
		}
		w.logger.Debug("temp directory removed", zap.String("path", dir))
	}
	return errors.Join(errs...)
}

// DirPrefix returns up to the first ten characters of the base name of path.
func DirPrefix(path string) string {
	runes := []rune(filepath.Base(path))
	if len(runes) > dirPrefixLen {
		runes = runes[:dirPrefixLen]
	}
	return string(runes)
}
