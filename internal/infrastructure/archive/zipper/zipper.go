package zipper

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

// Assembler packs a manifest into an in-memory deflate-compressed zip.
type Assembler struct {
	level int
	now   func() time.Time
}

func NewAssembler(level int) *Assembler {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	return &Assembler{level: level, now: time.Now}
}

func (a *Assembler) Assemble(manifest *domain.Manifest) ([]byte, error) {
	if manifest == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "assemble archive", fmt.Errorf("nil manifest"))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	level := a.level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	modified := a.now().UTC()
	for _, entry := range manifest.Entries() {
		if err := validEntryName(entry.Path); err != nil {
			return nil, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Path,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", entry.Path, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", entry.Path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func validEntryName(name string) error {
	clean := path.Clean(name)
	if name == "" || clean != name || path.IsAbs(name) || clean == ".." || strings.HasPrefix(clean, "../") {
		return domain.WrapError(domain.ErrInvalidInput, "assemble archive", fmt.Errorf("unsafe entry name %q", name))
	}
	return nil
}
