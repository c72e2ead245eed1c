package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

// Source reads CLI input files from a folder and an explicit path list.
type Source struct {
	dir      string
	paths    []string
	maxBytes int64
}

func NewSource(dir string, paths []string, maxBytes int64) *Source {
	return &Source{dir: dir, paths: paths, maxBytes: maxBytes}
}

// ReadAll returns the folder's regular files in name order followed by the
// explicit paths in argument order. Subdirectories are not descended.
func (s *Source) ReadAll(ctx context.Context) ([]domain.UploadedFile, error) {
	paths, err := s.listDir()
	if err != nil {
		return nil, err
	}
	paths = append(paths, s.paths...)
	if len(paths) == 0 {
		return nil, domain.ErrNoFiles
	}

	files := make([]domain.UploadedFile, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.readFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, domain.UploadedFile{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func (s *Source) listDir() ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (s *Source) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read file", fmt.Errorf("%s is not a regular file", path))
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read file", fmt.Errorf("%s exceeds %d bytes", path, s.maxBytes))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// WriteFile writes data next to path through a temp file and renames it into place.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
