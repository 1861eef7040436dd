package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/ashwini-cargo/internal/async"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/export"
	"github.com/joseph-ayodele/ashwini-cargo/internal/extract"
	"github.com/joseph-ayodele/ashwini-cargo/internal/ingest"
	"github.com/joseph-ayodele/ashwini-cargo/internal/logger"
	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
	"github.com/joseph-ayodele/ashwini-cargo/internal/ocr"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
	repo "github.com/joseph-ayodele/ashwini-cargo/internal/repository"
	"github.com/joseph-ayodele/ashwini-cargo/internal/server"
)

func main() {
	cfg := common.LoadConfig()

	log, logCloser := logger.Init(logger.FromAppConfig(cfg.Log))
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.OpenSQLite(cfg.Store.SQLitePath, log)
	if err != nil {
		log.Error("failed to open sqlite", "path", cfg.Store.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := repo.OpenCounterStore(ctx, cfg.Store, db, log)
	if err != nil {
		log.Error("failed to open counter store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("closing counter store", "error", err)
		}
	}()

	loc := cfg.Numbering.Location()
	gen := numbering.NewGenerator(store,
		numbering.WithLocation(loc),
		numbering.WithLRSeed(cfg.Numbering.LRSeed),
		numbering.WithLogger(log),
	)

	scans := repo.NewScanRepository(db, log)
	extractor := ocr.NewExtractor(ocr.ConfigFromApp(cfg.OCR), log)
	pipe := pipeline.NewScanPipeline(extract.NewOCRAdapter(extractor), scans, log)

	queue := async.NewScanQueue(pipe, log,
		async.WithWorkers(cfg.Scan.Workers),
		async.WithQueueSize(cfg.Scan.QueueSize),
		async.WithProcessTimeout(cfg.Scan.Timeout),
	)

	if dir := cfg.Scan.InboxDir; dir != "" {
		inbox := ingest.NewInbox(pipe, scans, queue, cfg.Server.MaxUploadBytes, log)
		go func() {
			err := inbox.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{dir},
				InitialScan: true,
				Debounce:    cfg.Scan.InboxDebounce,
			})
			if err != nil {
				log.Error("scan inbox stopped", "dir", dir, "error", err)
			}
		}()
		log.Info("watching scan inbox", "dir", dir)
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Deps{
		Generator:      gen,
		Store:          store,
		Pipeline:       pipe,
		Queue:          queue,
		Scans:          scans,
		Export:         export.NewService(scans, loc, log),
		Location:       loc,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         log,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// gRPC health for orchestrator probes
	grpcServer := grpc.NewServer()
	monitor := server.NewHealthMonitor(store, 15*time.Second, log)
	grpc_health_v1.RegisterHealthServer(grpcServer, monitor.Server())
	go monitor.Run(ctx)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		log.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	go func() {
		log.Info("ashwini console listening",
			"addr", cfg.Server.HTTPAddr,
			"store", cfg.Store.Driver,
			"timezone", loc.String(),
			"ocr_lang", extractor.Language(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	log.Info("stopped")
}
