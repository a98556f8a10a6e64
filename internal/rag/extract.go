package rag

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// minPDFText is the number of characters below which PDF extraction is
// reported as limited.
const minPDFText = 50

var (
	// ErrLimitedText is returned with the partial text when a PDF yields
	// almost nothing, usually because it is scanned or image based.
	ErrLimitedText = errors.New("limited text could be extracted from this PDF; it may be scanned or image-based")
	// ErrEmptyDocument is returned when a document has no text to index.
	ErrEmptyDocument = errors.New("document is empty")
)

// IsPDF reports whether a document should be parsed as PDF, by MIME type or
// by file extension.
func IsPDF(mimeType, name string) bool {
	return mimeType == "application/pdf" || strings.EqualFold(filepath.Ext(name), ".pdf")
}

// ExtractText reads the document at path. PDFs are parsed for their text
// layer; everything else is read as UTF-8.
func ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return ExtractBytes(filepath.Base(path), "", data)
}

// ExtractBytes is ExtractText for an in-memory document. A PDF the parser
// cannot make sense of is reported as an error.
func ExtractBytes(name, mimeType string, data []byte) (text string, err error) {
	if !IsPDF(mimeType, name) {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: not valid UTF-8 text", name)
		}
		return string(data), nil
	}
	// The pdf package panics on many malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("open pdf %s: malformed: %v", name, p)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", name, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", name, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", name, err)
	}
	text = collapseSpace(buf.String())
	if utf8.RuneCountInString(text) < minPDFText {
		return text, ErrLimitedText
	}
	return text, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
