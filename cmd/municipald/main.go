// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command municipald starts the municipal assistant HTTP server.
//
// It reads configuration from environment variables and blocks until
// the server stops.
//
// # Environment Variables
//
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12210)
//   - LLM_BACKEND_TYPE: generation provider - ollama, openai, anthropic, llamacpp (default: ollama)
//   - EMBEDDING_BACKEND_TYPE: embedding provider - ollama, openai, hash
//   - WEAVIATE_SERVICE_URL: Weaviate vector DB URL (optional; in-memory otherwise)
//   - AUDIT_DB_PATH: BadgerDB directory for the audit trail (in-memory otherwise)
//   - APPROVAL_DB_PATH: BadgerDB directory for approval requests
//   - APPROVAL_POLICY_PATH: approval gate table override, watched for changes
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: municipal-otel-collector:4317)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_DIR: directory for JSON log files (stderr only otherwise)
//
// # Usage
//
//	go build -o municipald ./cmd/municipald
//	./municipald
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/Ginkgo-AI/MuniciPal-sub001/pkg/logging"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator"
)

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "municipald",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := orchestrator.ConfigFromEnv()
	slog.Info("Starting municipald",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"weaviate_url", cfg.WeaviateURL,
	)

	svc, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}
	defer svc.Close()

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Orchestrator error: %v", err)
	}
}
