// Package pdf extracts plain text from PDF files.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads the whole PDF at path and returns its plain text.
// An encrypted or malformed file returns an error; a well-formed PDF with no
// text layer (e.g. scanned images) returns an empty string and no error.
func ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("copy pdf text %s: %w", path, err)
	}
	return buf.String(), nil
}

// DocumentName derives the display label from a PDF path: the base file name
// without the .pdf extension.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
