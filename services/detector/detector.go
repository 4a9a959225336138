// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package detector provides the client-capability detection service for
// Kodiak.
//
// The service inspects HTTP request signals (Accept header, User-Agent,
// structured client hints), classifies the client's browser, network
// and device, and resolves the optimal image format and encoder quality
// through configurable decision cascades. Results are cached by header
// signature.
//
// # Usage
//
//	cfg := detector.Config{Port: 12280, ConfigPath: "/etc/kodiak/detector.yaml"}
//	svc, err := detector.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/engine"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
	"github.com/AleutianAI/Kodiak/services/detector/routes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the detector service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing. Callers
	// must not modify the router.
	Router() *gin.Engine

	// Detector exposes the detection engine for embedding the service
	// in a larger process instead of running the HTTP surface.
	Detector() *engine.Detector
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds service-level options. Zero values use defaults; the
// detailed detection configuration lives in the YAML file at ConfigPath.
type Config struct {
	// Port is the HTTP server port. Default: 12280. Overrides the
	// config file's server.port when non-zero.
	Port int

	// ConfigPath is the detector YAML configuration file. Empty runs
	// on built-in defaults with hot reload disabled.
	ConfigPath string

	// KnowledgePath overrides the embedded browser format tables.
	KnowledgePath string

	// OTelEndpoint is the OpenTelemetry collector endpoint. Overrides
	// the config file when non-empty; empty both places disables
	// trace export.
	OTelEndpoint string

	// GinMode sets the Gin framework mode: debug, release, test.
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service wires the engine, configuration watcher, HTTP router and
// observability together. All fields are read-only after New() returns.
type service struct {
	config        Config
	detectorCfg   *config.DetectorConfig
	router        *gin.Engine
	eng           *engine.Detector
	watcher       *config.Watcher
	tracerCleanup func(context.Context)
}

var _ Service = (*service)(nil)

// New creates a detector Service: loads configuration, loads the
// knowledge base, builds the engine, starts the config watcher when a
// file path is given, and sets up routes.
func New(cfg Config) (Service, error) {
	s := &service{config: cfg}

	dcfg, err := loadDetectorConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading detector config: %w", err)
	}
	applyOverrides(dcfg, cfg)
	s.detectorCfg = dcfg

	kb, err := loadKnowledge(cfg.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}

	s.eng = engine.New(dcfg, kb, nil)

	if cfg.ConfigPath != "" {
		s.watcher, err = config.NewWatcher(cfg.ConfigPath, func(next *config.DetectorConfig) {
			applyOverrides(next, s.config)
			s.eng.SetConfig(next)
			slog.Info("detector configuration reloaded", "path", s.config.ConfigPath)
		})
		if err != nil {
			slog.Warn("config watcher unavailable, hot reload disabled",
				"path", cfg.ConfigPath, "error", err)
		} else {
			s.watcher.Start(context.Background())
		}
	}

	if dcfg.Server.OTelEndpoint != "" {
		cleanup, err := initTracer(dcfg.Server.OTelEndpoint)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			s.tracerCleanup = cleanup
		}
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.detectorCfg.Server.Port)
	slog.Info("Starting detector server", "port", s.detectorCfg.Server.Port)

	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine { return s.router }

func (s *service) Detector() *engine.Detector { return s.eng }

// =============================================================================
// Private Initialization Methods
// =============================================================================

func loadDetectorConfig(path string) (*config.DetectorConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func loadKnowledge(path string) (*knowledge.Base, error) {
	if path == "" {
		return knowledge.Load()
	}
	return knowledge.LoadFile(path)
}

// applyOverrides laces service-level settings over the file
// configuration. Explicit process options win over the file.
func applyOverrides(dcfg *config.DetectorConfig, cfg Config) {
	if cfg.Port != 0 {
		dcfg.Server.Port = cfg.Port
	}
	if cfg.OTelEndpoint != "" {
		dcfg.Server.OTelEndpoint = cfg.OTelEndpoint
	}
	if cfg.GinMode != "" {
		dcfg.Server.GinMode = cfg.GinMode
	}
}

func (s *service) initRouter() {
	if mode := s.detectorCfg.Server.GinMode; mode != "" {
		gin.SetMode(mode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("kodiak-detector"))

	routes.SetupRoutes(s.router, s.eng, s.detectorCfg.Server.EnableMetrics)
}

// initTracer sets up the OTLP trace exporter. Uses an insecure gRPC
// connection, appropriate for internal collector networks.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("kodiak-detector")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// cleanup releases resources held by the service. Called when Run()
// exits.
func (s *service) cleanup() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			slog.Warn("config watcher close error", "error", err)
		}
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
