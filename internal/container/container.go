package container

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-disaster-id-scan/internal/capture"
	"go-disaster-id-scan/internal/config"
	"go-disaster-id-scan/internal/factory"
	"go-disaster-id-scan/internal/logger"
	"go-disaster-id-scan/internal/mrz"
	"go-disaster-id-scan/internal/observer"
	"go-disaster-id-scan/internal/ocr"
	"go-disaster-id-scan/internal/repository"
	"go-disaster-id-scan/internal/scanner"
	"go-disaster-id-scan/internal/service"
	"go-disaster-id-scan/internal/storage"
	"go-disaster-id-scan/internal/transport"
	"go-disaster-id-scan/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	engine     ocr.Engine
	repository repository.RegistrantRepository
	scanner    *scanner.Scanner
	pool       *scanner.WorkerPool
	service    service.RegistrationService
	handler    http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	engine, err := components.EngineFactory.CreateEngine(cfg.OCREngine)
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewSQLiteRepository(cfg.DatabaseFile())
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to open registrant database: %w", err)
	}

	sink, err := components.SinkFactory.CreateSink(cfg.ExportSink)
	if err != nil {
		engine.Close()
		repo.Close()
		return nil, fmt.Errorf("failed to create export sink: %w", err)
	}

	parseOpts := mrz.DefaultOptions()
	if cfg.StrictChecksums {
		parseOpts = parseOpts.WithStrictChecksums()
	}
	// The pivot follows the wall clock so long-running servers roll over.
	maxAge := cfg.MaxAgeYears
	parseOpts = parseOpts.WithCenturyPivot(func(yy int, month time.Month, day int) (int, bool) {
		return mrz.PivotRelativeTo(time.Now(), maxAge)(yy, month, day)
	})

	scanOpts := []scanner.Option{scanner.WithParseOptions(parseOpts)}
	// Text frames are not images, so the quality gate only applies to OCR.
	if cfg.OCREngine == config.OCREngineTesseract {
		thresholds := capture.DefaultThresholds()
		thresholds.MinSharpness = cfg.MinSharpness
		scanOpts = append(scanOpts, scanner.WithQualityGate(capture.NewAssessor(thresholds)))
	}
	frameScanner := scanner.New(engine, scanOpts...)

	fetcher, err := newFrameFetcher(cfg)
	if err != nil {
		engine.Close()
		repo.Close()
		return nil, err
	}

	pool := scanner.NewWorkerPool(cfg.ScanWorkers)
	pool.Start()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(observer.NewMetricsObserver(registry))

	svc := service.NewRegistrationService(
		repo,
		frameScanner,
		fetcher,
		validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedFrameHosts),
		sink,
		publisher,
		service.Options{ParseOptions: parseOpts, ScanTimeout: cfg.ScanTimeout},
	)

	return &Container{
		config:     cfg,
		engine:     engine,
		repository: repo,
		scanner:    frameScanner,
		pool:       pool,
		service:    svc,
		handler:    transport.NewHandler(svc, cfg, registry, engine.Name()),
	}, nil
}

// newFrameFetcher routes blob URLs to Azure when credentials are configured.
func newFrameFetcher(cfg *config.Config) (storage.FrameFetcher, error) {
	httpFetcher := storage.NewHTTPFrameFetcher(cfg.ImageFetchTimeout, storage.WithMaxBytes(cfg.MaxRequestBodySize))
	if cfg.AzureAccountName == "" || cfg.AzureAccountKey == "" {
		return storage.NewRoutingFetcher(httpFetcher, nil), nil
	}

	blob, err := storage.NewAzureBlobStore(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob fetcher: %w", err)
	}
	return storage.NewRoutingFetcher(httpFetcher, blob), nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the registration service
func (c *Container) Service() service.RegistrationService {
	return c.service
}

// Scanner returns the frame scanner
func (c *Container) Scanner() *scanner.Scanner {
	return c.scanner
}

// Pool returns the worker pool used for batch scans
func (c *Container) Pool() *scanner.WorkerPool {
	return c.pool
}

// Close releases the worker pool, OCR engine and database
func (c *Container) Close() error {
	c.pool.Close()
	return errors.Join(c.engine.Close(), c.repository.Close())
}
