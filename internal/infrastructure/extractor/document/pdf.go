package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFText returns the text layer of every page in page order. A page
// without text contributes nothing; a page that fails to parse fails the
// whole document. The parser panics on some malformed inputs, so panics
// become errors.
func readPDFText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	if len(data) == 0 {
		return "", 0, errors.New("empty pdf")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages = reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			return "", pages, fmt.Errorf("read page %d: %w", i, pageErr)
		}
		b.WriteString(content)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), pages, nil
}
