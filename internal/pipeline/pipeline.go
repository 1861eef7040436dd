package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/extract"
	"github.com/joseph-ayodele/ashwini-cargo/internal/logger"
	"github.com/joseph-ayodele/ashwini-cargo/internal/lrparse"
	"github.com/joseph-ayodele/ashwini-cargo/internal/metrics"
	"github.com/joseph-ayodele/ashwini-cargo/internal/ocr"
	"github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

// ScanInput is one uploaded LR document.
type ScanInput struct {
	Filename string
	Data     []byte
}

// ScanPipeline runs OCR then field parsing over uploaded lorry receipts.
type ScanPipeline struct {
	Extractor extract.TextExtractor
	Scans     repository.ScanRepository
	Logger    *slog.Logger
}

func NewScanPipeline(tx extract.TextExtractor, scans repository.ScanRepository, logger *slog.Logger) *ScanPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanPipeline{Extractor: tx, Scans: scans, Logger: logger}
}

// ExtractFields recognises the document and parses the LR fields from its text.
// It fails only when the OCR engine fails, with an error matching common.ErrScanFailed.
func (p *ScanPipeline) ExtractFields(ctx context.Context, data []byte, filename string) (lrparse.Record, error) {
	rec, _, err := p.extractFields(ctx, data, filename)
	return rec, err
}

func (p *ScanPipeline) extractFields(ctx context.Context, data []byte, filename string) (lrparse.Record, extract.TextExtractionResult, error) {
	log := logger.Enrich(ctx, p.Logger)
	start := time.Now()

	res, err := p.Extractor.Extract(ctx, data, filename)
	if err != nil {
		metrics.ScanFinished("failed", res.Method, time.Since(start))
		log.Error("lr scan failed", "filename", filename, "error", err)
		return lrparse.Record{}, res, common.NewScanFailed(err)
	}

	rec := lrparse.Parse(res.Text)
	if res.RawText != "" {
		rec.RawText = res.RawText
	}
	missing := rec.Missing()
	for _, f := range missing {
		metrics.FieldMissing(f)
	}
	metrics.ScanFinished("parsed", res.Method, time.Since(start))
	log.Info("lr fields extracted",
		"filename", filename,
		"method", res.Method,
		"missing", missing,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, res, nil
}

// Submit validates the upload and records it as a QUEUED scan.
func (p *ScanPipeline) Submit(ctx context.Context, in ScanInput) (*entity.Scan, error) {
	v := common.NewValidator().
		Field("filename", in.Filename, common.Required).
		Field("file", in.Data, common.Required)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return p.Scans.Create(ctx, in.Filename, ocr.ContentHash(in.Data), int64(len(in.Data)))
}

// Process moves a queued scan through RUNNING to PARSED or FAILED.
// On OCR failure the scan is marked FAILED and the wrapped scan error is returned.
func (p *ScanPipeline) Process(ctx context.Context, scanID uuid.UUID, in ScanInput) (*entity.Scan, error) {
	ctx = common.WithScanID(ctx, scanID.String())
	log := logger.Enrich(ctx, p.Logger)

	if err := p.Scans.Start(ctx, scanID); err != nil {
		return nil, err
	}

	rec, res, err := p.extractFields(ctx, in.Data, in.Filename)
	if err != nil {
		// record the failure even if the caller's context is already done
		if ferr := p.Scans.FinishFailed(context.WithoutCancel(ctx), scanID, err.Error()); ferr != nil {
			log.Error("could not record scan failure", "error", ferr)
		}
		return nil, err
	}
	if err := p.Scans.FinishParsed(ctx, scanID, res.Method, rec); err != nil {
		return nil, err
	}
	return p.Scans.Get(ctx, scanID)
}

// Run is Submit followed by Process.
func (p *ScanPipeline) Run(ctx context.Context, in ScanInput) (*entity.Scan, error) {
	scan, err := p.Submit(ctx, in)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, scan.ID, in)
}
