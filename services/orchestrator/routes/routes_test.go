// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/llm"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.Client
type mockLLMClient struct{}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return "mock response", nil
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()

	engine, err := classification.NewEngine()
	if err != nil {
		t.Fatalf("classification engine: %v", err)
	}
	auditor := audit.NewMemoryLogger()
	store := vectordb.NewMemoryStore(vectordb.NewHashEmbedder())
	gate, err := approval.NewGate(approval.NewMemoryStore(), auditor)
	if err != nil {
		t.Fatalf("approval gate: %v", err)
	}
	t.Cleanup(gate.Close)

	retriever := rag.NewRetriever(store, rag.RetrieverConfig{SimilarityFloor: 0, FetchLimit: 10, FinalCount: 5})
	pipeline := rag.NewPipeline(retriever, rag.NewCitationEngine(&mockLLMClient{}), rag.NewIngester(store, engine), auditor)

	sessions := identity.NewSessionManager()
	return Deps{
		Pipeline: pipeline,
		Store:    store,
		Gate:     gate,
		Auditor:  auditor,
		Sessions: sessions,
		Upgrades: identity.NewUpgradeService(sessions, auditor),
	}
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersCoreRoutes(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestDeps(t))

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/ask"},
		{"POST", "/v1/documents"},
		{"GET", "/v1/documents"},
		{"POST", "/v1/approvals"},
		{"GET", "/v1/approvals"},
		{"GET", "/v1/approvals/:id"},
		{"POST", "/v1/approvals/:id/decision"},
		{"GET", "/v1/audit"},
		{"GET", "/v1/audit/verify"},
		{"POST", "/v1/sessions"},
		{"GET", "/v1/sessions/:id"},
		{"POST", "/v1/sessions/:id/upgrade"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("route %s %s not registered", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_HealthCheck(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_AskRequiresBody(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestDeps(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/ask", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /v1/ask without body = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
