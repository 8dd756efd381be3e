// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package architect assembles the component pipeline and serves it over HTTP.
//
// This package owns the wiring: the model gateway, the design palette
// source, the storage backend, tracing, metrics, and the gin router. The
// same BuildPipeline helper is used by the CLI so both front ends run an
// identical pipeline.
//
// # Usage
//
//	cfg := architect.Config{Port: 12230}
//	svc, err := architect.New(ctx, cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = svc.Run(ctx)
package architect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/ComponentArchitect/pkg/extensions"
	"github.com/AleutianAI/ComponentArchitect/services/architect/agent"
	"github.com/AleutianAI/ComponentArchitect/services/architect/design"
	"github.com/AleutianAI/ComponentArchitect/services/architect/generator"
	"github.com/AleutianAI/ComponentArchitect/services/architect/observability"
	"github.com/AleutianAI/ComponentArchitect/services/architect/policy"
	"github.com/AleutianAI/ComponentArchitect/services/architect/routes"
	"github.com/AleutianAI/ComponentArchitect/services/architect/session"
	"github.com/AleutianAI/ComponentArchitect/services/architect/storage"
	"github.com/AleutianAI/ComponentArchitect/services/architect/validate"
	"github.com/AleutianAI/ComponentArchitect/services/llm"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is the HTTP front end of the pipeline.
//
// # Thread Safety
//
// Run blocks and should only be called once per instance.
type Service interface {
	// Run serves HTTP until ctx is done, then shuts down gracefully.
	// With a FileSource palette and WatchPalette set, the palette is
	// watched for the lifetime of Run.
	Run(ctx context.Context) error

	// Router returns the gin engine, for tests.
	Router() *gin.Engine

	// Pipeline returns the assembled pipeline.
	Pipeline() *agent.Pipeline

	// Close releases the storage backend and flushes traces. Run calls it.
	Close() error
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds the service configuration.
//
// # Description
//
// All fields are optional; applyConfigDefaults fills the gaps.
type Config struct {
	// Port is the HTTP server port. Default: 12230
	Port int

	// GinMode is passed to gin.SetMode when set.
	GinMode string

	// ServiceName labels traces. Default: "component-architect"
	ServiceName string

	// LLM configures the generator gateway.
	LLM llm.Config

	// CriticLLM configures a separate critic gateway. Nil reuses LLM.
	CriticLLM *llm.Config

	// DisableCritic skips the semantic critic.
	DisableCritic bool

	// MaxRetries bounds validation passes. Nil: agent.DefaultMaxRetries.
	MaxRetries *int

	// MaxSteps is the node execution ceiling. Zero derives it from
	// MaxRetries with headroom.
	MaxSteps int

	// Temperature is the generator sampling temperature. Nil keeps the
	// backend default.
	Temperature *float32

	// PalettePath is a JSON or YAML palette. Empty uses the embedded default.
	PalettePath string

	// WatchPalette reloads PalettePath when it changes.
	WatchPalette bool

	// Storage selects where finalized components go.
	// Default: file backend under ./generated_project.
	Storage storage.Config

	// OTelEndpoint is an OTLP gRPC collector address, "stdout" for the
	// stdout exporter, or empty to disable tracing.
	OTelEndpoint string

	// UIDir is a static frontend served under /ui. Empty disables it.
	UIDir string

	// SessionTTL prunes sessions idle for longer. Default: 24h.
	SessionTTL time.Duration

	// APIToken, when set, is required as a bearer token on /api routes.
	APIToken string

	// PromptPolicy blocks prompts carrying secrets and redacts personal
	// data before they reach the model backend.
	PromptPolicy bool
}

// Options carries collaborators that cannot come from configuration.
// Every field is optional.
type Options struct {
	// LLMClient replaces the client built from Config.LLM.
	LLMClient llm.LLMClient

	// CriticClient replaces the critic client.
	CriticClient llm.LLMClient

	// Registerer and Gatherer back the metrics. Default: the global registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Extensions replace the auth, audit and prompt filter hooks. Fields
	// left nil are derived from Config: APIToken selects token auth,
	// PromptPolicy selects the policy engine, and audit events go to Logger.
	Extensions *extensions.ServiceOptions
}

const (
	defaultPort        = 12230
	defaultServiceName = "component-architect"
	defaultOutputDir   = "generated_project"
	defaultSessionTTL  = 24 * time.Hour
	shutdownTimeout    = 10 * time.Second
)

// applyConfigDefaults fills zero values with defaults.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.MaxRetries == nil {
		n := agent.DefaultMaxRetries
		cfg.MaxRetries = &n
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = max(agent.DefaultMaxSteps, agent.MinSteps(*cfg.MaxRetries)+2)
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = storage.BackendFile
	}
	if cfg.Storage.Backend == storage.BackendFile && cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaultOutputDir
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	return cfg
}

// =============================================================================
// Pipeline Assembly
// =============================================================================

// PipelineDeps are the collaborators BuildPipeline wires together.
type PipelineDeps struct {
	Client       llm.LLMClient
	CriticClient llm.LLMClient
	Palette      design.Source
	Sink         storage.Sink
	EventHandler agent.EventHandler
	Logger       *slog.Logger
}

// BuildPipeline assembles generator, validator, critic and sink into a
// pipeline according to cfg.
//
// # Inputs
//
//   - cfg: MaxRetries, MaxSteps, Temperature and DisableCritic are used.
//   - deps: Client and Sink are required. A nil CriticClient reuses Client.
//
// # Outputs
//
//   - *agent.Pipeline: The pipeline.
//   - error: agent.ErrInvalidConfig for missing dependencies or bad bounds.
func BuildPipeline(cfg Config, deps PipelineDeps) (*agent.Pipeline, error) {
	cfg = applyConfigDefaults(cfg)
	if deps.Client == nil {
		return nil, fmt.Errorf("%w: llm client is required", agent.ErrInvalidConfig)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	palette := deps.Palette
	if palette == nil {
		palette = design.NewStaticSource(nil)
	}

	var params llm.GenerationParams
	if cfg.Temperature != nil {
		params.Temperature = llm.Float32(*cfg.Temperature)
	}
	gen := generator.New(deps.Client, palette, generator.WithParams(params), generator.WithLogger(logger))

	var critic validate.Critic
	if !cfg.DisableCritic {
		criticClient := deps.CriticClient
		if criticClient == nil {
			criticClient = deps.Client
		}
		critic = validate.NewLLMCritic(criticClient, llm.GenerationParams{Temperature: llm.Float32(0)}, logger)
	}
	val := validate.NewValidator(palette, critic, logger)

	return agent.NewPipeline(gen, val, deps.Sink,
		agent.WithMaxRetries(*cfg.MaxRetries),
		agent.WithMaxSteps(cfg.MaxSteps),
		agent.WithEventHandler(deps.EventHandler),
		agent.WithLogger(logger),
	)
}

// OpenPalette returns the palette source for path. An empty path uses the
// embedded default.
func OpenPalette(path string, logger *slog.Logger) (design.Source, *design.FileSource) {
	if path == "" {
		return design.NewStaticSource(nil), nil
	}
	fs := design.NewFileSource(path, logger)
	return fs, fs
}

// =============================================================================
// Service Implementation
// =============================================================================

type service struct {
	config  Config
	opts    Options
	logger  *slog.Logger
	router  *gin.Engine
	metrics *observability.Metrics

	llmClient    llm.LLMClient
	criticClient llm.LLMClient
	palette      design.Source
	fileSource   *design.FileSource
	store        storage.StoreCloser
	sessions     *session.Store
	pipeline     *agent.Pipeline
	ext          extensions.ServiceOptions

	tracerCleanup func(context.Context)
}

// New creates the service.
//
// # Description
//
// Initializes tracing, metrics, the model gateway, the palette source, the
// storage backend, the pipeline and the router, in that order. A failure
// releases everything already initialized.
//
// # Inputs
//
//   - ctx: Used while constructing clients (the Gemini and GCS clients need it).
//   - cfg: Service configuration.
//   - opts: Optional collaborators. May be nil.
func New(ctx context.Context, cfg Config, opts *Options) (Service, error) {
	s := &service{
		config:   applyConfigDefaults(cfg),
		sessions: session.NewStore(),
	}
	if opts != nil {
		s.opts = *opts
	}
	s.logger = s.opts.Logger
	if s.logger == nil {
		s.logger = slog.Default()
	}

	cleanup, err := s.initTracer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	s.metrics = observability.NewMetrics(s.opts.Registerer)

	if err := s.initExtensions(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize extensions: %w", err)
	}

	if err := s.initLLMClient(ctx); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.palette, s.fileSource = OpenPalette(s.config.PalettePath, s.logger)
	if _, err := s.palette.Load(ctx); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load design palette: %w", err)
	}

	s.store, err = storage.Open(ctx, s.config.Storage)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open %s storage: %w", s.config.Storage.Backend, err)
	}

	s.pipeline, err = BuildPipeline(s.config, PipelineDeps{
		Client:       s.llmClient,
		CriticClient: s.criticClient,
		Palette:      s.palette,
		Sink:         s.store,
		EventHandler: agent.MultiHandler(s.metrics.EventHandler(), agent.LoggingHandler(s.logger)),
		Logger:       s.logger,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	s.initRouter()
	return s, nil
}

// Run implements Service.
func (s *service) Run(ctx context.Context) error {
	defer s.cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting component architect server", "port", s.config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down component architect server")
		return srv.Shutdown(shutdownCtx)
	})
	if s.fileSource != nil && s.config.WatchPalette {
		g.Go(func() error {
			return s.fileSource.Watch(ctx)
		})
	}
	g.Go(func() error {
		s.pruneSessions(ctx)
		return nil
	})

	return g.Wait()
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Pipeline implements Service.
func (s *service) Pipeline() *agent.Pipeline {
	return s.pipeline
}

// Close implements Service.
func (s *service) Close() error {
	s.cleanup()
	return nil
}

// =============================================================================
// Initialization Helpers
// =============================================================================

// initTracer installs the global tracer provider.
func (s *service) initTracer(ctx context.Context) (func(context.Context), error) {
	if s.config.OTelEndpoint == "" {
		return func(context.Context) {}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	if s.config.OTelEndpoint == "stdout" {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		var conn *grpc.ClientConn
		conn, err = grpc.NewClient(s.config.OTelEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(s.config.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown tracer provider", "error", err)
		}
	}, nil
}

func (s *service) initLLMClient(ctx context.Context) error {
	s.llmClient = s.opts.LLMClient
	if s.llmClient == nil {
		client, err := llm.NewClient(ctx, s.config.LLM)
		if err != nil {
			return err
		}
		s.llmClient = client
		s.logger.Info("Using LLM backend", "backend", s.config.LLM.Backend, "model", s.config.LLM.Model)
	}

	s.criticClient = s.opts.CriticClient
	if s.criticClient == nil && s.config.CriticLLM != nil {
		client, err := llm.NewClient(ctx, *s.config.CriticLLM)
		if err != nil {
			return fmt.Errorf("critic: %w", err)
		}
		s.criticClient = client
		s.logger.Info("Using separate critic backend", "backend", s.config.CriticLLM.Backend)
	}
	return nil
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware(s.config.ServiceName))

	routes.SetupRoutes(s.router, routes.Dependencies{
		Runner:     s.pipeline,
		Sessions:   s.sessions,
		Palette:    s.palette,
		Metrics:    s.metrics,
		Gatherer:   s.opts.Gatherer,
		UIDir:      s.config.UIDir,
		Extensions: s.ext,
	})
}

// initExtensions resolves the auth, audit and prompt filter hooks.
func (s *service) initExtensions() error {
	var ext extensions.ServiceOptions
	if s.opts.Extensions != nil {
		ext = *s.opts.Extensions
	}
	if ext.AuthProvider == nil && s.config.APIToken != "" {
		ext.AuthProvider = extensions.NewTokenAuthProvider(s.config.APIToken)
		s.logger.Info("API token authentication enabled")
	}
	if ext.AuditLogger == nil {
		ext.AuditLogger = extensions.NewSlogAuditLogger(s.logger)
	}
	if ext.PromptFilter == nil && s.config.PromptPolicy {
		engine, err := policy.New()
		if err != nil {
			return err
		}
		ext.PromptFilter = engine
		s.logger.Info("Prompt policy enabled")
	}
	s.ext = ext.WithDefaults()
	return nil
}

// pruneSessions drops idle sessions until ctx is done.
func (s *service) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(min(s.config.SessionTTL, time.Hour))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Prune(time.Now().Add(-s.config.SessionTTL)); n > 0 {
				s.logger.Info("Pruned idle sessions", "count", n)
			}
		}
	}
}

func (s *service) cleanup() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("storage close error", "error", err)
		}
		s.store = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}
