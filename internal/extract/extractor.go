// Package extract provides text extraction from various document formats.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// format is the internal dispatch target resolved from MIME type and
// file extension.
type format int

const (
	formatUnknown format = iota
	formatPlain
	formatMarkdown
	formatPDF
	formatDOCX
	formatExcel
	formatPPTX
)

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of content. Dispatch is by MIME type
// first, filename extension second; the extension wins when the MIME type
// is generic or absent. Unknown types are attempted as plain text before
// failing with ErrUnsupportedFormat.
func (e *Extractor) Extract(content []byte, contentType, filename string) (string, error) {
	f := formatFromMIME(contentType)
	if f == formatUnknown {
		f = formatFromExtension(filename)
	}
	switch f {
	case formatPlain:
		return extractPlain(content)
	case formatMarkdown:
		return extractMarkdown(content)
	case formatPDF:
		return extractPDF(content)
	case formatDOCX:
		return extractDOCX(content)
	case formatExcel:
		return extractExcel(content)
	case formatPPTX:
		return extractPPTX(content)
	default:
		// Last resort: plain-text decoding, unless the bytes are clearly binary.
		if bytes.ContainsRune(content, 0) {
			return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, filename, contentType)
		}
		return extractPlain(content)
	}
}

func formatFromMIME(contentType string) format {
	// Strip parameters like "; charset=utf-8".
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.TrimSpace(strings.ToLower(contentType)) {
	case "text/markdown":
		return formatMarkdown
	case "application/pdf":
		return formatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return formatDOCX
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return formatExcel
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return formatPPTX
	case "text/plain", "text/csv", "application/json":
		return formatPlain
	default:
		// Generic or absent MIME types fall through to extension dispatch.
		return formatUnknown
	}
}

func formatFromExtension(filename string) format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return formatMarkdown
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	case ".xlsx":
		return formatExcel
	case ".pptx":
		return formatPPTX
	case ".txt", ".rst", ".csv", ".json", ".log":
		return formatPlain
	default:
		return formatUnknown
	}
}
