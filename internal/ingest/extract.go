package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// Canonical file types stored on document records.
const (
	TypePDF      = "application/pdf"
	TypePlain    = "text/plain"
	TypeMarkdown = "text/markdown"
)

var extensionTypes = map[string]string{
	".pdf":      TypePDF,
	".txt":      TypePlain,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
}

var contentTypes = map[string]string{
	TypePDF:      TypePDF,
	TypePlain:    TypePlain,
	TypeMarkdown: TypeMarkdown,
	"text/x-markdown": TypeMarkdown,
}

// resolveFileType maps an upload to its canonical type. The file extension
// wins over the declared content type; browsers routinely send
// application/octet-stream for markdown.
func resolveFileType(fileName, contentType string) (string, error) {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return t, nil
	}

	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	if t, ok := contentTypes[strings.TrimSpace(strings.ToLower(mediaType))]; ok {
		return t, nil
	}

	return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedFileType, fileName, contentType)
}

// extractText pulls plain text out of the uploaded bytes.
func extractText(fileType string, data []byte) (string, error) {
	switch fileType {
	case TypePDF:
		return extractPDF(data)
	case TypePlain, TypeMarkdown:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: file is not valid UTF-8", ErrExtraction)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
	}
}

// extractPDF concatenates the text of every page in order, pages separated
// by a blank line.
func extractPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %v", ErrExtraction, err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for page := 0; page < doc.NumPage(); page++ {
		text, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("%w: reading PDF page %d: %v", ErrExtraction, page+1, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), nil
}
