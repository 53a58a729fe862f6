// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/llm"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

type fakeLLM struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func candidate(source string, level classification.Level, conf float64) RetrievalResult {
	return RetrievalResult{
		SearchResult: vectordb.SearchResult{
			DocumentID:     vectordb.ChunkID(source, 0),
			Content:        "Content of " + source + " describing quiet hours and permits.",
			Source:         source,
			Classification: level,
		},
		Confidence: conf,
	}
}

func TestComposeCitedAnswer(t *testing.T) {
	client := &fakeLLM{reply: "Quiet hours run 10pm to 7am [Source: Noise Ordinance]. Permits renew annually [Source: Permit Guide]."}
	engine := NewCitationEngine(client)

	results := []RetrievalResult{
		candidate("ordinances/noise_ordinance.md", classification.Public, 0.9),
		candidate("guides/permit_guide.md", classification.Public, 0.7),
	}
	answer, err := engine.Compose(context.Background(), "when are quiet hours", results, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if answer.LowConfidence {
		t.Fatal("answer flagged low confidence")
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(answer.Citations))
	}
	// The weakest citation bounds the whole answer.
	if answer.Confidence != 0.7 {
		t.Errorf("overall confidence = %f, want minimum 0.7", answer.Confidence)
	}
	if answer.Ceiling != classification.Public {
		t.Errorf("ceiling = %s, want public", answer.Ceiling)
	}
	if !strings.Contains(client.lastPrompt, "Noise Ordinance") {
		t.Error("prompt missing friendly source name")
	}
}

func TestComposeRefusesBelowThreshold(t *testing.T) {
	engine := NewCitationEngine(&fakeLLM{reply: "should never be called"})
	results := []RetrievalResult{
		candidate("ordinances/noise_ordinance.md", classification.Public, 0.3),
	}
	answer, err := engine.Compose(context.Background(), "question", results, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if answer.Answer != RefusalAnswer {
		t.Errorf("answer = %q, want refusal", answer.Answer)
	}
	if len(answer.Citations) != 0 || answer.Confidence != 0 || !answer.LowConfidence {
		t.Errorf("refusal shape wrong: %+v", answer)
	}
}

func TestComposeRefusesEmptyResults(t *testing.T) {
	engine := NewCitationEngine(&fakeLLM{reply: "unused"})
	answer, err := engine.Compose(context.Background(), "question", nil, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if answer.Answer != RefusalAnswer || answer.Confidence != 0 {
		t.Errorf("empty results did not refuse: %+v", answer)
	}
}

func TestComposeRejectsUncitedGeneration(t *testing.T) {
	client := &fakeLLM{reply: "The capital of France is Paris."}
	engine := NewCitationEngine(client)
	results := []RetrievalResult{
		candidate("ordinances/noise_ordinance.md", classification.Public, 0.9),
	}
	answer, err := engine.Compose(context.Background(), "question", results, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if answer.Answer != RefusalAnswer {
		t.Errorf("uncited generation accepted: %q", answer.Answer)
	}
}

func TestComposeRejectsUnknownSourceCitation(t *testing.T) {
	client := &fakeLLM{reply: "Per the charter [Source: City Charter], noise is banned."}
	engine := NewCitationEngine(client)
	results := []RetrievalResult{
		candidate("ordinances/noise_ordinance.md", classification.Public, 0.9),
	}
	answer, err := engine.Compose(context.Background(), "question", results, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if answer.Answer != RefusalAnswer {
		t.Error("citation of an unsupplied source accepted")
	}
}

func TestComposeRefusesOnGenerationFailure(t *testing.T) {
	engine := NewCitationEngine(&fakeLLM{err: errors.New("backend down")})
	results := []RetrievalResult{
		candidate("ordinances/noise_ordinance.md", classification.Public, 0.9),
	}
	answer, err := engine.Compose(context.Background(), "question", results, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if answer.Answer != RefusalAnswer || !answer.LowConfidence {
		t.Error("generation failure did not refuse")
	}
}

func TestComposeStripsThinkBlocks(t *testing.T) {
	client := &fakeLLM{reply: "<think>reasoning here</think>Quiet hours apply [Source: Noise Ordinance]."}
	engine := NewCitationEngine(client)
	results := []RetrievalResult{
		candidate("ordinances/noise_ordinance.md", classification.Public, 0.9),
	}
	answer, err := engine.Compose(context.Background(), "question", results, classification.Public)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if strings.Contains(answer.Answer, "<think>") {
		t.Errorf("think block survived: %q", answer.Answer)
	}
}

func TestTruncateQuoteKeepsValidUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
	}{
		{"short ascii", "quiet hours", 200},
		{"long ascii", strings.Repeat("a", 300), 200},
		{"multibyte at boundary", strings.Repeat("x", 199) + "é-tail", 200},
		{"all multibyte", strings.Repeat("日", 100), 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateQuote(tt.in, tt.max)
			if len(got) > tt.max {
				t.Errorf("truncateQuote length = %d, want <= %d", len(got), tt.max)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateQuote produced invalid UTF-8: %q", got)
			}
			if !strings.HasPrefix(tt.in, got) {
				t.Errorf("truncateQuote result %q is not a prefix of the input", got)
			}
		})
	}
}

func TestFriendlySource(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"ordinances/noise_ordinance.md", "Noise Ordinance"},
		{"permit-guide.txt", "Permit Guide"},
		{"faq.md", "Faq"},
	}
	for _, tt := range tests {
		if got := friendlySource(tt.raw); got != tt.want {
			t.Errorf("friendlySource(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
