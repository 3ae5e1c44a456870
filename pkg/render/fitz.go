package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer rasterizes PDF pages through MuPDF.
type FitzRenderer struct {
	dpi      float64
	maxPages int
}

// NewFitzRenderer constructs a renderer with sane bounds.
func NewFitzRenderer(dpi float64, maxPages int) *FitzRenderer {
	if dpi <= 0 {
		dpi = 150
	}
	if maxPages <= 0 {
		maxPages = 20
	}
	return &FitzRenderer{dpi: dpi, maxPages: maxPages}
}

// Render opens the document from memory and encodes each page as PNG.
func (r *FitzRenderer) Render(ctx context.Context, pdf []byte) ([][]byte, error) {
	if len(pdf) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	num := doc.NumPage()
	if num == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	if num > r.maxPages {
		num = r.maxPages
	}

	pages := make([][]byte, 0, num)
	for i := 0; i < num; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", i+1, err)
		}
		buf := &bytes.Buffer{}
		if err := png.Encode(buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}
