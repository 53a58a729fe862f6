// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/llm"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/middleware"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// scriptedLLM returns a canned completion, or an error when set.
type scriptedLLM struct {
	reply string
	err   error
}

func (s *scriptedLLM) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

var _ llm.Client = (*scriptedLLM)(nil)

// testEnv wires the full stack over in-memory stores with the session
// middleware mounted, the same shape the route table uses in
// production.
type testEnv struct {
	router   *gin.Engine
	store    *vectordb.MemoryStore
	gate     *approval.Gate
	auditor  *audit.MemoryLogger
	sessions *identity.SessionManager
	upgrades *identity.UpgradeService
	pipeline *rag.Pipeline
}

func newTestEnv(t *testing.T, model *scriptedLLM) *testEnv {
	t.Helper()

	engine, err := classification.NewEngine()
	require.NoError(t, err)

	auditor := audit.NewMemoryLogger()
	store := vectordb.NewMemoryStore(vectordb.NewHashEmbedder())
	gate, err := approval.NewGate(approval.NewMemoryStore(), auditor)
	require.NoError(t, err)
	t.Cleanup(gate.Close)

	retriever := rag.NewRetriever(store, rag.RetrieverConfig{SimilarityFloor: 0, FetchLimit: 10, FinalCount: 5})
	pipeline := rag.NewPipeline(retriever, rag.NewCitationEngine(model), rag.NewIngester(store, engine), auditor)

	sessions := identity.NewSessionManager()
	upgrades := identity.NewUpgradeService(sessions, auditor)

	router := gin.New()
	v1 := router.Group("/v1")
	v1.Use(middleware.Session())
	v1.POST("/ask", HandleAsk(pipeline, sessions))
	v1.POST("/documents", IngestDocument(pipeline, sessions))
	v1.GET("/documents", DocumentStats(store))
	v1.POST("/approvals", SubmitApproval(gate, sessions))
	v1.GET("/approvals", ListApprovals(gate))
	v1.GET("/approvals/:id", GetApproval(gate))
	v1.POST("/approvals/:id/decision", DecideApproval(gate, sessions))
	v1.GET("/audit", QueryAudit(auditor))
	v1.GET("/audit/verify", VerifyAudit(auditor))
	v1.POST("/sessions", CreateSession(sessions))
	v1.GET("/sessions/:id", GetSession(sessions))
	v1.POST("/sessions/:id/upgrade", UpgradeSession(upgrades))

	return &testEnv{
		router:   router,
		store:    store,
		gate:     gate,
		auditor:  auditor,
		sessions: sessions,
		upgrades: upgrades,
		pipeline: pipeline,
	}
}

// do performs one request. Tier and actor ride on headers the way the
// session middleware expects.
func (e *testEnv) do(t *testing.T, method, path, tier string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tier != "" {
		req.Header.Set(middleware.TierHeader, tier)
		req.Header.Set(middleware.ActorHeader, "test-"+tier)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// doWithSession is do with an explicit session id header.
func (e *testEnv) doWithSession(t *testing.T, method, path, tier, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TierHeader, tier)
	req.Header.Set(middleware.SessionHeader, sessionID)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// seedOrdinance indexes one public ordinance the scripted model can
// cite as [Source: Noise].
func (e *testEnv) seedOrdinance(t *testing.T) {
	t.Helper()
	_, err := e.pipeline.Ingest(context.Background(), "seed", "seeder", identity.Authenticated, rag.IngestRequest{
		Source:       "ordinances/noise.md",
		Title:        "Noise Ordinance",
		ResourceType: "ordinance",
		Content:      "Quiet hours run from 10pm to 7am on weekdays. Violations start at a written warning.",
	})
	require.NoError(t, err)
}
