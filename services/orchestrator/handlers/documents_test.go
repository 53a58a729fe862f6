// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator/datatypes"
)

func TestIngestDocument_ClassifiesAtIngestTime(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{})

	w := env.do(t, "POST", "/v1/documents", "authenticated", datatypes.IngestDocumentRequest{
		Source:       "cases/case-2026-0117.md",
		Title:        "Case 2026-0117",
		ResourceType: "case_file",
		Content:      "Resident reported a burst water main on Oak Street. Crew dispatched same day.",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "sensitive", body["classification"])
	assert.Equal(t, body["chunks"], body["indexed"])
}

func TestIngestDocument_UncertainHintEscalates(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{})

	w := env.do(t, "POST", "/v1/documents", "authenticated", datatypes.IngestDocumentRequest{
		Source:       "ordinances/draft.md",
		ResourceType: "ordinance",
		Content:      "Draft ordinance text pending council review.",
		Uncertain:    true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sensitive", decodeBody(t, w)["classification"])
}

func TestIngestDocument_MissingFields(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{})

	w := env.do(t, "POST", "/v1/documents", "authenticated", map[string]string{
		"source": "x.md",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentStats_CountsChunks(t *testing.T) {
	env := newTestEnv(t, &scriptedLLM{})
	env.seedOrdinance(t)

	w := env.do(t, "GET", "/v1/documents", "anonymous", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["chunks"])
}
