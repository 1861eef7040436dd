package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
)

// Extraction methods.
const (
	MethodImageOCR = "image-ocr"
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir   string
	HeicConverter string // heif-convert | magick | sips

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	ArtifactCacheDir string
}

// ConfigFromApp maps the env-driven OCR settings.
func ConfigFromApp(c common.OCRConfig) Config {
	return Config{
		Tesseract:        c.Tesseract,
		TesseractLang:    c.Language,
		TessdataDir:      c.TessdataDir,
		PSM:              c.PSM,
		OEM:              c.OEM,
		HeicConverter:    c.HeicConverter,
		ArtifactCacheDir: c.ArtifactCacheDir,
		MaxPages:         c.MaxPages,
	}
}

type ExtractionResult struct {
	Text       string // normalized text used for field parsing
	RawText    string // text exactly as the engine returned it
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // MethodImageOCR | MethodPDFText | MethodPDFOCR
	Language   string
	Duration   time.Duration
	Warnings   []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewExtractorWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewExtractorWithRunner is NewExtractor with a custom command runner.
func NewExtractorWithRunner(cfg Config, r Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: r, logger: logger}
}

// Language is the single OCR language the extractor is configured for.
func (e *Extractor) Language() string { return e.cfg.TesseractLang }

// Extract recognises the text in an uploaded document. It does not retry and has
// no timeout of its own; cancel ctx to stop the engine.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (ExtractionResult, error) {
	start := time.Now()
	if len(data) == 0 {
		return ExtractionResult{}, fmt.Errorf("empty document %q", filename)
	}
	format, ext := DetectFormat(data, filename)
	e.logger.Debug("starting ocr extraction", "filename", filename, "format", format, "ext", ext, "bytes", len(data))

	var (
		res ExtractionResult
		err error
	)
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, data)
	case constants.IMAGE:
		if constants.IsHEICExt(ext) {
			res, err = e.extractHEIC(ctx, data)
		} else {
			res, err = e.extractImage(ctx, data)
		}
	default:
		e.logger.Error("unsupported document format", "filename", filename, "ext", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported document format: %q", ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(res.RawText)
	res.Language = e.cfg.TesseractLang
	for _, w := range res.Warnings {
		e.logger.Debug("ocr engine warning", "warning", truncate(w, 512))
	}
	e.logger.Info("ocr extraction finished",
		"filename", filename,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ContentHash is the hex SHA-256 of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
