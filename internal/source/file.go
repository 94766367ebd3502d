package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// FileSource resolves references relative to a root directory.
type FileSource struct {
	root   string
	logger *slog.Logger
}

func NewFileSource(root string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = "."
	}
	return &FileSource{root: root, logger: logger}
}

func (s *FileSource) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceRetrieval, err)
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("source.file.not_found", "ref", ref, "path", path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrSourceRetrieval, ref, err)
	}
	s.logger.Debug("source.file.ok", "ref", ref, "bytes", len(b))
	return b, nil
}

// resolve keeps references inside the root; absolute paths are accepted as-is
// only when they already live under it.
func (s *FileSource) resolve(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("%w: empty document reference", common.ErrSourceRetrieval)
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrSourceRetrieval, err)
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, filepath.FromSlash(ref))
	}
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes source root", common.ErrSourceRetrieval, ref)
	}
	return filepath.Join(root, rel), nil
}

func (s *FileSource) Close() error { return nil }
