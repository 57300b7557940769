// Package pdftext pulls plain text out of PDF documents.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrNotPDF is returned for input that cannot be opened as a PDF
var ErrNotPDF = errors.New("not a PDF document")

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Extract returns the text of every page, pages separated by a newline
func Extract(data []byte) (string, error) {
	if !IsPDF(data) {
		return "", ErrNotPDF
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %v: %w", err, ErrNotPDF)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("reading text of page %d: %w", i+1, err)
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}

	return strings.Join(pages, "\n"), nil
}

// Extractor adapts Extract to the interface used by the history service
type Extractor struct{}

func (Extractor) Extract(data []byte) (string, error) {
	return Extract(data)
}
