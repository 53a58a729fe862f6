// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Config Tests
// =============================================================================

func TestApplyConfigDefaults_AllDefaults(t *testing.T) {
	result := applyConfigDefaults(Config{})

	assert.Equal(t, 12210, result.Port, "default port should be 12210")
	assert.Equal(t, "ollama", result.LLMBackend, "default LLM backend should be ollama")
	assert.Equal(t, "ollama", result.EmbeddingBackend,
		"embedding backend should follow LLM backend by default")
	assert.Equal(t, "municipal-otel-collector:4317", result.OTelEndpoint)
	assert.False(t, result.DisableMetrics, "metrics should be enabled by default")
}

func TestApplyConfigDefaults_AnthropicPairsWithHashEmbedder(t *testing.T) {
	result := applyConfigDefaults(Config{LLMBackend: "anthropic"})

	assert.Equal(t, "anthropic", result.LLMBackend)
	assert.Equal(t, "hash", result.EmbeddingBackend,
		"generation-only backends should default to the hash embedder")
}

func TestApplyConfigDefaults_PreservesCustomValues(t *testing.T) {
	cfg := Config{
		Port:             8080,
		LLMBackend:       "openai",
		EmbeddingBackend: "hash",
		OTelEndpoint:     "custom-collector:4317",
		WeaviateURL:      "http://weaviate:8080",
		DisableMetrics:   true,
	}

	result := applyConfigDefaults(cfg)

	assert.Equal(t, 8080, result.Port)
	assert.Equal(t, "openai", result.LLMBackend)
	assert.Equal(t, "hash", result.EmbeddingBackend,
		"explicit embedding backend should not be overwritten")
	assert.Equal(t, "custom-collector:4317", result.OTelEndpoint)
	assert.Equal(t, "http://weaviate:8080", result.WeaviateURL)
	assert.True(t, result.DisableMetrics,
		"opting out of metrics must not be overwritten")
}

func TestConfigFromEnv_ReadsEnvironment(t *testing.T) {
	t.Setenv("ORCHESTRATOR_PORT", "9090")
	t.Setenv("LLM_BACKEND_TYPE", "openai")
	t.Setenv("EMBEDDING_BACKEND_TYPE", "hash")
	t.Setenv("WEAVIATE_SERVICE_URL", "http://weaviate:8080")
	t.Setenv("AUDIT_DB_PATH", "/var/lib/municipal/audit")

	cfg := ConfigFromEnv()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "openai", cfg.LLMBackend)
	assert.Equal(t, "hash", cfg.EmbeddingBackend)
	assert.Equal(t, "http://weaviate:8080", cfg.WeaviateURL)
	assert.Equal(t, "/var/lib/municipal/audit", cfg.AuditDBPath)
}

func TestConfigFromEnv_InvalidPortIgnored(t *testing.T) {
	t.Setenv("ORCHESTRATOR_PORT", "not-a-port")

	cfg := ConfigFromEnv()
	assert.Equal(t, 0, cfg.Port, "invalid port should be left for defaults")
}

// =============================================================================
// Vector Store Selection Tests
// =============================================================================

func TestBuildVectorStore_LightweightWhenUnset(t *testing.T) {
	s := &service{config: applyConfigDefaults(Config{})}

	store := s.buildVectorStore(vectordb.NewHashEmbedder())
	_, ok := store.(*vectordb.MemoryStore)
	assert.True(t, ok, "no URL should select the in-memory store")
}

func TestBuildVectorStore_LightweightWhenMalformed(t *testing.T) {
	s := &service{config: applyConfigDefaults(Config{WeaviateURL: "not a url"})}

	store := s.buildVectorStore(vectordb.NewHashEmbedder())
	_, ok := store.(*vectordb.MemoryStore)
	assert.True(t, ok, "malformed URL should select the in-memory store")
}

func TestBuildVectorStore_WeaviateWhenConfigured(t *testing.T) {
	s := &service{config: applyConfigDefaults(Config{WeaviateURL: "http://weaviate:8080"})}

	store := s.buildVectorStore(vectordb.NewHashEmbedder())
	_, ok := store.(*vectordb.WeaviateStore)
	assert.True(t, ok, "valid URL should select the Weaviate store")
}

// =============================================================================
// Embedder Selection Tests
// =============================================================================

func TestBuildEmbedder_Hash(t *testing.T) {
	s := &service{config: applyConfigDefaults(Config{EmbeddingBackend: "hash"})}

	embedder, err := s.buildEmbedder()
	assert.NoError(t, err)
	_, ok := embedder.(*vectordb.HashEmbedder)
	assert.True(t, ok)
}

func TestBuildEmbedder_UnknownBackend(t *testing.T) {
	s := &service{config: applyConfigDefaults(Config{EmbeddingBackend: "quantum"})}

	_, err := s.buildEmbedder()
	assert.Error(t, err)
}

func TestBuildLLMClient_UnknownBackend(t *testing.T) {
	s := &service{config: applyConfigDefaults(Config{LLMBackend: "carrier-pigeon"})}

	_, err := s.buildLLMClient()
	assert.Error(t, err)
}
