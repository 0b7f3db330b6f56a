package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/dje-harvester/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

// Extractor pulls plain text out of gazette PDFs page by page. Payloads that
// are not PDFs go to the fallback extractor.
type Extractor struct {
	fallback ports.TextExtractor
}

func NewExtractor(fallback ports.TextExtractor) *Extractor {
	return &Extractor{fallback: fallback}
}

func (e *Extractor) Extract(ctx context.Context, raw []byte) (string, error) {
	if !IsPDF(raw) {
		if e.fallback == nil {
			return "", fmt.Errorf("payload is not a pdf")
		}
		return e.fallback.Extract(ctx, raw)
	}
	return extractPDF(ctx, raw)
}

// IsPDF looks for the header within the first KiB, where readers accept it.
func IsPDF(raw []byte) bool {
	head := raw
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

func extractPDF(ctx context.Context, raw []byte) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := pageText(page)
		if err != nil {
			slog.Warn("pdf_page_text_failed", "page", i, "error", err)
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

// pageText rebuilds the page one line per baseline, in content stream order.
// Glyphs on the same baseline separated by a visible gap get a space.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read page content: %v", r)
		}
	}()

	glyphs := page.Content().Text
	var b strings.Builder
	for i, glyph := range glyphs {
		if i > 0 {
			switch {
			case newLine(glyphs[i-1], glyph):
				b.WriteByte('\n')
			case wordGap(glyphs[i-1], glyph):
				b.WriteByte(' ')
			}
		}
		b.WriteString(glyph.S)
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func newLine(prev, next pdf.Text) bool {
	tolerance := math.Max(1, math.Min(prev.FontSize, next.FontSize)/2)
	return math.Abs(prev.Y-next.Y) > tolerance
}

func wordGap(prev, next pdf.Text) bool {
	if prev.S == " " || next.S == " " || prev.W <= 0 {
		return false
	}
	return next.X-(prev.X+prev.W) > next.FontSize*0.2
}
