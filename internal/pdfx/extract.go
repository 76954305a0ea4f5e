// Package pdfx extracts text from tender documents on a best-effort basis.
// Anything that goes wrong is reported as an absent result, never an error:
// the caller falls back to analyzing without document context.
package pdfx

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxPages bounds extraction so a huge attachment cannot overwhelm the
// analyzer's context window.
const maxPages = 5

const truncationMarker = "\n[...Texto truncado después de 5 páginas...]"

// ExtractText returns the concatenated plain text of at most maxPages pages,
// marked when truncated. ok is false when nothing usable could be read.
func ExtractText(r io.ReaderAt, size int64) (text string, ok bool) {
	// The pdf library panics on some malformed xref tables.
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", false
	}

	var b strings.Builder
	total := reader.NumPage()
	pages := total
	if pages > maxPages {
		pages = maxPages
	}

	extracted := 0
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		b.WriteString(content)
		b.WriteString("\n")
		extracted++
	}

	if extracted == 0 {
		return "", false
	}

	if total > maxPages {
		b.WriteString(truncationMarker)
	}

	return b.String(), true
}

// ExtractFromBytes is a convenience wrapper for in-memory documents.
func ExtractFromBytes(data []byte) (string, bool) {
	return ExtractText(bytes.NewReader(data), int64(len(data)))
}
