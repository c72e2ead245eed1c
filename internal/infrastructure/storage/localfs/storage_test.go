package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestSourceReadsDirSortedAndSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "b.txt"), "bee")
	writeTestFile(t, filepath.Join(dir, "a.pdf"), "ay")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, filepath.Join(dir, "nested", "c.txt"), "see")

	extra := filepath.Join(t.TempDir(), "z.zip")
	writeTestFile(t, extra, "zed")

	files, err := NewSource(dir, []string{extra}, 0).ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := []string{"a.pdf", "b.txt", "z.zip"}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(files))
	}
	for i, name := range want {
		if files[i].Name != name {
			t.Fatalf("file %d: expected %s, got %s", i, name, files[i].Name)
		}
	}
	if string(files[1].Data) != "bee" {
		t.Fatalf("unexpected contents %q", files[1].Data)
	}
}

func TestSourceNoInputs(t *testing.T) {
	_, err := NewSource(t.TempDir(), nil, 0).ReadAll(context.Background())
	if !errors.Is(err, domain.ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
}

func TestSourceRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	writeTestFile(t, path, "0123456789")

	_, err := NewSource("", []string{path}, 4).ReadAll(context.Background())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSourceRejectsDirectoryArgument(t *testing.T) {
	_, err := NewSource("", []string{t.TempDir()}, 0).ReadAll(context.Background())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSourceMissingDir(t *testing.T) {
	_, err := NewSource(filepath.Join(t.TempDir(), "missing"), nil, 0).ReadAll(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "categorized_files.zip")
	if err := WriteFile(path, []byte("zip")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "zip" {
		t.Fatalf("unexpected contents %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file cleanup, got %d entries", len(entries))
	}
}
