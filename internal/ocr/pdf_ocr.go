package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

// extractPDF prefers the embedded text layer and rasterizes only when it is empty.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (ExtractionResult, error) {
	text, pages, err := e.pdfToText(data)
	if err != nil {
		e.logger.Debug("pdf text layer unreadable, falling back to ocr", "error", err)
	}
	if strings.TrimSpace(text) != "" {
		return ExtractionResult{
			RawText:    text,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     MethodPDFText,
		}, nil
	}

	text, pages, warns, err := e.pdfToOCR(ctx, data)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	return ExtractionResult{
		RawText:    text,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     MethodPDFOCR,
		Warnings:   warns,
	}, nil
}

func (e *Extractor) pdfToText(data []byte) (text string, pages int, err error) {
	// the reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf reader: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, err
	}
	total := r.NumPage()
	limit := total
	if e.cfg.MaxPages > 0 && limit > e.cfg.MaxPages {
		limit = e.cfg.MaxPages
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(pt)
	}
	return b.String(), total, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, data []byte) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "acc-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	in := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", 0, nil, err
	}
	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, in, prefix)
	if _, errb, err := e.runner.Run(ctx, nil, e.cfg.Pdftoppm, args...); err != nil {
		return "", 0, nonEmpty(string(errb)), fmt.Errorf("pdftoppm: %w", err)
	}

	// pdftoppm names pages prefix-1.png, prefix-2.png (zero-padded for long documents)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	var firstErr error
	ok := 0
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img, nil)
		warns = append(warns, w...)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			warns = append(warns, err.Error())
			continue
		}
		ok++
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	if ok == 0 {
		return "", len(matches), warns, firstErr
	}
	return b.String(), len(matches), warns, nil
}
