package extract

import (
	"context"

	"github.com/joseph-ayodele/ashwini-cargo/internal/ocr"
)

type OCRAdapter struct {
	e *ocr.Extractor
}

func NewOCRAdapter(e *ocr.Extractor) *OCRAdapter {
	return &OCRAdapter{e: e}
}

func (a *OCRAdapter) Extract(ctx context.Context, data []byte, filename string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, data, filename)
	return TextExtractionResult{
		Text:       r.Text,
		RawText:    r.RawText,
		Pages:      r.Pages,
		SourceType: r.SourceType,
		Method:     r.Method,
		Language:   r.Language,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
	}, err
}
