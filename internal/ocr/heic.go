package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

// extractHEIC converts a phone photo to PNG, then OCRs the PNG.
func (e *Extractor) extractHEIC(ctx context.Context, data []byte) (ExtractionResult, error) {
	png, warns, cleanup, err := e.convertHEICtoPNG(ctx, data)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		e.logger.Error("heic conversion failed", "error", err)
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, err
	}
	txt, w, err := e.tesseractOCR(ctx, png, nil)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, err
	}
	return ExtractionResult{
		RawText:    txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     MethodImageOCR,
		Warnings:   warns,
	}, nil
}

// convertHEICtoPNG converts HEIC/HEIF bytes to a PNG file.
// With ArtifactCacheDir set, the PNG is persisted (and reused) at {cacheDir}/{sha256}.png.
//
// Returns (pngPath, warnings, cleanup, err); cleanup may be nil.
func (e *Extractor) convertHEICtoPNG(ctx context.Context, data []byte) (string, []string, func(), error) {
	cacheDir := e.cfg.ArtifactCacheDir
	var cached string
	if cacheDir != "" {
		cached = filepath.Join(cacheDir, ContentHash(data)+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			e.logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "acc-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	in := filepath.Join(tmpDir, "photo.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", nil, cleanup, err
	}

	var args []string
	switch e.cfg.HeicConverter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		return "", nil, cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := e.runner.Run(ctx, nil, e.cfg.HeicConverter, args...); err != nil {
		return "", nonEmpty(string(errb)), cleanup, fmt.Errorf("%s failed: %w", e.cfg.HeicConverter, err)
	}
	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}

	if cached == "" {
		return out, nil, cleanup, nil
	}
	if err := persist(out, cached); err != nil {
		// the converted temp file is still usable for this scan
		e.logger.Warn("could not cache heic->png", "cache", cached, "error", err)
		return out, nil, cleanup, nil
	}
	e.logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, cleanup, nil
}

// persist moves src to dst, copying when a rename crosses filesystems.
func persist(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if st, err := os.Stat(dst); err == nil && !st.IsDir() {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	outF, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outF, in); err != nil {
		_ = outF.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := outF.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
