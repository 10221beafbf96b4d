package pdfutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// MinTextLength is the number of non-space characters below which a
// document is treated as having no extractable text.
const MinTextLength = 10

// ErrNoText is returned when a document yields too little text to work with.
var ErrNoText = errors.New("no extractable text found in PDF")

// ExtractText reads PDF bytes and returns plain text using ledongthuc/pdf.
// Pages that fail to decode are skipped; an error is returned only when the
// document itself cannot be opened.
func ExtractText(data []byte) (string, error) {
	return ExtractTextAt(bytes.NewReader(data), int64(len(data)))
}

// ExtractTextAt is ExtractText over a random-access source such as an
// *os.File holding a spooled upload.
func ExtractTextAt(r io.ReaderAt, size int64) (text string, err error) {
	if size == 0 {
		return "", ErrNoText
	}
	// ledongthuc/pdf panics on some malformed object graphs.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read pdf: %v", rec)
		}
	}()
	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if content == "" {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// ExtractFromReader drains the reader before passing along to ExtractText.
func ExtractFromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return ExtractText(data)
}

// HasText reports whether text clears MinTextLength once trimmed.
func HasText(text string) bool {
	return len(strings.TrimSpace(text)) >= MinTextLength
}
