package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/extract"
	"github.com/joseph-ayodele/ashwini-cargo/internal/logger"
	"github.com/joseph-ayodele/ashwini-cargo/internal/ocr"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
)

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall OCR timeout")
	legacy := flag.Bool("legacy-mode", false, "report payment mode the way the old console stored it")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: lrscan [--timeout=2m] [--legacy-mode] <image-or-pdf>")
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	// keep stdout clean for the JSON record
	lc := logger.FromAppConfig(cfg.Log)
	log, closer := logger.New(lc, os.Stderr)
	defer closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	extractor := ocr.NewExtractor(ocr.ConfigFromApp(cfg.OCR), log)
	p := pipeline.NewScanPipeline(extract.NewOCRAdapter(extractor), nil, log)

	start := time.Now()
	rec, err := p.ExtractFields(ctx, data, filepath.Base(path))
	if err != nil {
		log.Error("lr scan failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	if *legacy {
		rec.PaymentMode = rec.LegacyPaymentMode()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		log.Error("encode record", "error", err)
		os.Exit(1)
	}
	log.Info("lr scan OK",
		"path", path,
		"missing", rec.Missing(),
		"needs_review", rec.NeedsReview(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
