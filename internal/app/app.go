package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cctvstation/internal/config"
	"cctvstation/internal/logger"
	"cctvstation/internal/metrics"
	"cctvstation/internal/pipeline"
	"cctvstation/internal/repository/sqlite"
	"cctvstation/internal/route"
	"cctvstation/internal/service/ai"
	"cctvstation/internal/service/alert"
	"cctvstation/internal/service/capture"
	"cctvstation/internal/service/display"
	"cctvstation/internal/service/storage"
	"cctvstation/internal/service/video"
	"cctvstation/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	metrics    *metrics.Metrics
	db         *sqlite.DB
	index      *sqlite.Index
	detector   *ai.DetectorService
	channel    *alert.Channel
	hubService *websocket.HubService
	mailbox    *display.Mailbox
	pipeline   *pipeline.Pipeline
}

// NewApp loads configuration and wires every service. Nothing runs until Run.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}

	m := metrics.New()
	index := sqlite.NewIndex(db)
	detector := ai.NewDetectorService(cfg, log)
	channel := alert.NewChannel(alert.PortOptions{BaudRate: cfg.SerialBaud}, alert.OpenSerial, log)
	hub := websocket.NewHubService(cfg, m, log)
	mailbox := display.NewMailbox(func() { m.DisplayDrops.Add(1) })

	p := pipeline.New(cfg, pipeline.Deps{
		Detector: detector,
		Open: func(source string) (pipeline.FrameSource, error) {
			return capture.Open(source)
		},
		NewSession: func() (*storage.Session, error) {
			return storage.CreateSession(cfg.ResultsDir, storage.Options{
				Width:      cfg.OutputWidth,
				Height:     cfg.OutputHeight,
				FPS:        cfg.VideoFPS,
				NewEncoder: video.NewWriter,
			})
		},
		Alert:   channel,
		Display: mailbox,
		Events:  hub,
		Index:   index,
		Metrics: m,
	}, log)

	return &App{
		config:     cfg,
		logger:     log,
		metrics:    m,
		db:         db,
		index:      index,
		detector:   detector,
		channel:    channel,
		hubService: hub,
		mailbox:    mailbox,
		pipeline:   p,
	}, nil
}

// Run serves the control API until SIGINT/SIGTERM, then shuts everything down.
func (a *App) Run() error {
	defer a.Close()

	// Start background services
	go a.hubService.Run()
	go a.hubService.StreamFrames(a.mailbox)

	if a.config.SerialPort != "" {
		if err := a.channel.Open(a.config.SerialPort); err != nil {
			a.logger.Warning("Alert port %s not available: %v", a.config.SerialPort, err)
		}
	}

	if a.config.AutoStart {
		if err := a.pipeline.Start(a.config.CaptureSource); err != nil {
			a.logger.Error("Auto start failed: %v", err)
		}
	}

	router := route.SetupRoutes(route.Dependencies{
		Pipeline:      a.pipeline,
		Alert:         a.channel,
		Hub:           a.hubService,
		SessionRepo:   a.index.Sessions,
		DetectionRepo: a.index.Detections,
		Metrics:       a.metrics,
	}, a.config, a.logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	fmt.Printf("🚀 CCTV Detection Station\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Results: %s\n", a.config.ResultsDir)
	fmt.Printf("🤖 AI Model: %s (ready: %t)\n", a.config.ModelPath, a.detector.Ready())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Close stops the pipeline and releases every resource.
func (a *App) Close() {
	a.pipeline.Stop()
	a.mailbox.Close()
	a.hubService.Stop()

	if err := a.channel.Close(); err != nil {
		a.logger.Warning("Failed to close alert port: %v", err)
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warning("Failed to release detection network: %v", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Failed to close database: %v", err)
	}
	a.logger.Close()
}
