package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfBackend is one extraction strategy. Backends are tried in order; the
// first that returns non-empty text wins.
type pdfBackend struct {
	name string
	fn   func([]byte) (string, error)
}

var pdfBackends = []pdfBackend{
	{"ledongthuc/pdf:plaintext", extractPDFPages},
	{"ledongthuc/pdf:content", extractPDFContent},
}

// extractPDF runs the backend chain. When every backend fails or yields
// empty text, the returned ExtractionError carries all attempts.
func extractPDF(content []byte) (string, error) {
	attempts := make([]Attempt, 0, len(pdfBackends))
	for _, b := range pdfBackends {
		text, err := b.fn(content)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		attempts = append(attempts, Attempt{Backend: b.name, Err: err})
	}
	return "", &ExtractionError{Format: "PDF", Attempts: attempts}
}

// extractPDFPages pulls per-page plain text via the library's font-aware
// text assembly.
func extractPDFPages(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

// extractPDFContent walks the raw content streams and joins the text
// fragments in stream order. It recovers text from files whose font
// resources confuse the plain-text path. The library panics on some
// malformed streams, so the walk runs behind a recover.
func extractPDFContent(content []byte) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream walk: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for j, fragment := range page.Content().Text {
			if j > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(fragment.S)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
