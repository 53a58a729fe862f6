// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator wires the municipal assistant together: the
// classification engine, the tier-aware retrieval pipeline, the
// approval gate, the audit trail, and the HTTP surface that exposes
// them.
//
// # Usage
//
//	cfg := orchestrator.ConfigFromEnv()
//	svc, err := orchestrator.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// # Failure Posture
//
// Construction fails hard when a governance component cannot start:
// an assistant without a classification engine or an audit trail must
// not serve traffic. The vector database and tracing collector are
// softer dependencies; when they are unreachable the service runs in
// lightweight mode over in-memory stores.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/llm"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/observability"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/routes"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds orchestrator configuration. Zero values get defaults
// applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// LLMBackend selects the generation provider.
	// Valid values: "ollama", "openai". Default: "ollama"
	LLMBackend string

	// EmbeddingBackend selects the embedding provider.
	// Valid values: "ollama", "openai", "hash". Default follows
	// LLMBackend; "hash" is the deterministic stub for development.
	EmbeddingBackend string

	// WeaviateURL is the vector database URL. If empty or invalid the
	// service runs over an in-memory index.
	WeaviateURL string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "municipal-otel-collector:4317"
	OTelEndpoint string

	// AuditDBPath is the BadgerDB directory for the audit trail. Empty
	// keeps the trail in memory (development only; the trail must be
	// durable in production).
	AuditDBPath string

	// ApprovalDBPath is the BadgerDB directory for approval requests.
	// Empty keeps requests in memory.
	ApprovalDBPath string

	// ApprovalPolicyPath optionally overrides the embedded approval
	// gate table and is watched for changes.
	ApprovalPolicyPath string

	// DisableMetrics skips Prometheus metric registration. Metrics are
	// on by default; tests with their own registries turn them off.
	DisableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

// ConfigFromEnv builds a Config from the environment.
func ConfigFromEnv() Config {
	cfg := Config{
		LLMBackend:         os.Getenv("LLM_BACKEND_TYPE"),
		EmbeddingBackend:   os.Getenv("EMBEDDING_BACKEND_TYPE"),
		WeaviateURL:        os.Getenv("WEAVIATE_SERVICE_URL"),
		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AuditDBPath:        os.Getenv("AUDIT_DB_PATH"),
		ApprovalDBPath:     os.Getenv("APPROVAL_DB_PATH"),
		ApprovalPolicyPath: os.Getenv("APPROVAL_POLICY_PATH"),
		GinMode:            os.Getenv("GIN_MODE"),
	}
	if raw := os.Getenv("ORCHESTRATOR_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			cfg.Port = port
		} else {
			slog.Warn("Invalid ORCHESTRATOR_PORT, using default", "value", raw)
		}
	}
	return cfg
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.EmbeddingBackend == "" {
		// Generation-only backends have no embeddings endpoint, so
		// they pair with the local hash embedder by default.
		switch cfg.LLMBackend {
		case "anthropic", "llamacpp":
			cfg.EmbeddingBackend = "hash"
		default:
			cfg.EmbeddingBackend = cfg.LLMBackend
		}
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "municipal-otel-collector:4317"
	}
	return cfg
}

// =============================================================================
// Service
// =============================================================================

// Service is the orchestrator lifecycle contract.
type Service interface {
	// Run starts the HTTP server and blocks until it stops.
	Run() error

	// Router returns the configured Gin engine for integration tests.
	Router() *gin.Engine

	// Close releases stores, the approval gate watcher, and the tracer.
	Close()
}

type service struct {
	config Config
	router *gin.Engine

	classifier *classification.Engine
	auditor    audit.Logger
	store      vectordb.Store
	gate       *approval.Gate
	pipeline   *rag.Pipeline
	sessions   *identity.SessionManager
	upgrades   *identity.UpgradeService

	tracerCleanup func(context.Context)
}

// New wires all components per the configuration. Governance
// components (classification, audit, approvals) are hard requirements;
// Weaviate and the OTel collector degrade to lightweight mode.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	cleanup, err := s.initTracer()
	if err != nil {
		slog.Warn("Tracer initialization failed, continuing without export", "error", err)
	} else {
		s.tracerCleanup = cleanup
	}

	if !s.config.DisableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	s.classifier, err = classification.NewEngine()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize classification engine: %w", err)
	}

	if err := s.initAudit(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize audit trail: %w", err)
	}

	if err := s.initApprovals(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize approval gate: %w", err)
	}

	if err := s.initPipeline(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize retrieval pipeline: %w", err)
	}

	s.sessions = identity.NewSessionManager()
	s.upgrades = identity.NewUpgradeService(s.sessions, s.auditor)

	s.initRouter()
	return s, nil
}

func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting municipal orchestrator", "port", s.config.Port)
	return s.router.Run(addr)
}

func (s *service) Router() *gin.Engine {
	return s.router
}

// Close is idempotent; New calls it on partial failure and Run calls
// it on exit.
func (s *service) Close() {
	if s.gate != nil {
		s.gate.Close()
		s.gate = nil
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Vector store close error", "error", err)
		}
		s.store = nil
	}
	if s.auditor != nil {
		if err := s.auditor.Close(); err != nil {
			slog.Warn("Audit trail close error", "error", err)
		}
		s.auditor = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}

// =============================================================================
// Initialization
// =============================================================================

func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("municipal-orchestrator")))
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

func (s *service) initAudit() error {
	if s.config.AuditDBPath == "" {
		slog.Warn("AUDIT_DB_PATH not set; audit trail is in-memory and will not survive restarts")
		s.auditor = audit.NewMemoryLogger()
		return nil
	}

	logger, err := audit.OpenBadgerLogger(s.config.AuditDBPath)
	if err != nil {
		return err
	}
	s.auditor = logger
	slog.Info("Audit trail opened", "path", s.config.AuditDBPath)
	return nil
}

func (s *service) initApprovals() error {
	var store approval.RequestStore
	if s.config.ApprovalDBPath == "" {
		store = approval.NewMemoryStore()
	} else {
		badgerStore, err := approval.OpenBadgerStore(s.config.ApprovalDBPath)
		if err != nil {
			return err
		}
		store = badgerStore
		slog.Info("Approval store opened", "path", s.config.ApprovalDBPath)
	}

	var opts []approval.Option
	if s.config.ApprovalPolicyPath != "" {
		opts = append(opts, approval.WithPolicyOverride(s.config.ApprovalPolicyPath))
	}

	gate, err := approval.NewGate(store, s.auditor, opts...)
	if err != nil {
		return err
	}
	s.gate = gate
	return nil
}

func (s *service) initPipeline() error {
	embedder, err := s.buildEmbedder()
	if err != nil {
		return err
	}

	s.store = s.buildVectorStore(embedder)
	if err := s.store.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("failed to ensure vector schema: %w", err)
	}

	client, err := s.buildLLMClient()
	if err != nil {
		return err
	}

	retriever := rag.NewRetriever(s.store, rag.DefaultRetrieverConfig())
	s.pipeline = rag.NewPipeline(
		retriever,
		rag.NewCitationEngine(client),
		rag.NewIngester(s.store, s.classifier),
		s.auditor,
	)
	return nil
}

func (s *service) buildEmbedder() (vectordb.EmbeddingProvider, error) {
	switch s.config.EmbeddingBackend {
	case "ollama":
		return vectordb.NewOllamaEmbedder(os.Getenv("OLLAMA_BASE_URL"), os.Getenv("EMBEDDING_MODEL_NAME")), nil
	case "openai":
		return vectordb.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), os.Getenv("EMBEDDING_MODEL_NAME")), nil
	case "hash":
		slog.Warn("Using deterministic hash embedder; retrieval quality is development grade only")
		return vectordb.NewHashEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", s.config.EmbeddingBackend)
	}
}

// buildVectorStore prefers Weaviate and falls back to the in-memory
// index when the URL is missing or malformed.
func (s *service) buildVectorStore(embedder vectordb.EmbeddingProvider) vectordb.Store {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")

	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("Weaviate URL not configured, running in lightweight mode")
		return vectordb.NewMemoryStore(embedder)
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid, running in lightweight mode",
			"url", weaviateURL, "error", err)
		return vectordb.NewMemoryStore(embedder)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client, running in lightweight mode", "error", err)
		return vectordb.NewMemoryStore(embedder)
	}

	slog.Info("Weaviate client initialized", "url", weaviateURL)
	return vectordb.NewWeaviateStore(client, embedder)
}

func (s *service) buildLLMClient() (llm.Client, error) {
	switch s.config.LLMBackend {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	case "anthropic":
		slog.Info("Using Anthropic LLM backend")
		return llm.NewAnthropicClient()
	case "llamacpp":
		slog.Info("Using llama.cpp LLM backend")
		return llm.NewLlamaCppClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", s.config.LLMBackend)
	}
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("municipal-orchestrator"))

	routes.SetupRoutes(s.router, routes.Deps{
		Pipeline: s.pipeline,
		Store:    s.store,
		Gate:     s.gate,
		Auditor:  s.auditor,
		Sessions: s.sessions,
		Upgrades: s.upgrades,
	})
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
