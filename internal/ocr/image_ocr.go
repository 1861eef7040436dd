package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

func (e *Extractor) extractImage(ctx context.Context, data []byte) (ExtractionResult, error) {
	txt, warn, err := e.tesseractOCR(ctx, "stdin", data)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warn}, err
	}
	return ExtractionResult{
		RawText:    txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     MethodImageOCR,
		Warnings:   warn,
	}, nil
}

// tesseractOCR runs `tesseract <input> stdout -l <lang>`; input "stdin" reads data from stdin.
func (e *Extractor) tesseractOCR(ctx context.Context, input string, data []byte) (string, []string, error) {
	args := []string{input, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	var stdin io.Reader
	if data != nil {
		stdin = bytes.NewReader(data)
	}
	out, errb, err := e.runner.Run(ctx, stdin, e.cfg.Tesseract, args...)
	if err != nil {
		return "", nonEmpty(string(errb)), fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nonEmpty(string(errb)), nil
}

func nonEmpty(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return []string{s}
}
