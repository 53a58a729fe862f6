// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/llm"
)

// RefusalAnswer is the fixed text returned whenever the engine cannot
// answer from cited context. The kill-switch for hallucinated answers.
const RefusalAnswer = "I cannot find the specific policy. Let me connect you with a staff member."

// Citation ties one claim in an answer back to a retrieved chunk.
type Citation struct {
	Source     string  `json:"source"`
	DocumentID string  `json:"document_id"`
	Quote      string  `json:"quote"`
	Confidence float64 `json:"confidence"`
}

// CitedAnswer is an answer with its provenance. Every citation's
// document classification is at or below Ceiling; overall Confidence is
// the minimum of the citation confidences, so the weakest citation
// bounds trust in the whole answer.
type CitedAnswer struct {
	Answer        string               `json:"answer"`
	Citations     []Citation           `json:"citations"`
	Confidence    float64              `json:"confidence"`
	Ceiling       classification.Level `json:"ceiling"`
	SourcesUsed   int                  `json:"sources_used"`
	LowConfidence bool                 `json:"low_confidence"`
}

const promptTemplate = `You are a helpful municipal government assistant. Answer the resident's question using ONLY the context provided below. Do not use outside knowledge.

For every claim you make, cite the source using the format [Source: <source name>].

If you cannot find the answer in the provided context, say: "%s"

Context:
%s

Question: %s
`

var (
	citationPattern = regexp.MustCompile(`\[Source:\s*([^\]]+)\]`)
	thinkPattern    = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// CitationEngine turns scored candidates into a cited answer or a
// refusal. Composition is deterministic apart from the generation call,
// and the generation collaborator only ever sees candidates that
// already passed the ceiling filter and the answer threshold.
type CitationEngine struct {
	client          llm.Client
	answerThreshold float64
	topK            int
}

// NewCitationEngine creates an engine over the generation client.
// RAG_ANSWER_THRESHOLD overrides the confidence threshold (default 0.5).
func NewCitationEngine(client llm.Client) *CitationEngine {
	threshold := 0.5
	if raw := os.Getenv("RAG_ANSWER_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v < 1 {
			threshold = v
		} else {
			slog.Warn("Invalid RAG_ANSWER_THRESHOLD, using default", "value", raw, "default", threshold)
		}
	}
	return &CitationEngine{
		client:          client,
		answerThreshold: threshold,
		topK:            5,
	}
}

// Compose builds a cited answer from candidates already retrieved under
// the ceiling.
//
// # Description
//
// Selects the top-K candidates whose confidence clears the answer
// threshold, prompts the generation collaborator with only their
// content, and parses [Source: ...] citations from the generated text.
// Refuses rather than degrades: no qualifying candidates, a generation
// failure, or generated text citing none of the supplied sources all
// yield the refusal answer with zero citations and zero confidence.
//
// # Inputs
//   - ctx: Request context.
//   - question: The resident's question.
//   - results: Scored candidates from the Retriever, descending.
//   - ceiling: The classification ceiling applied during retrieval.
//
// # Outputs
//   - *CitedAnswer: The cited answer or the refusal answer. Never nil.
//   - error: Non-nil only for context cancellation; generation failures
//     are converted into refusals.
func (e *CitationEngine) Compose(ctx context.Context, question string, results []RetrievalResult, ceiling classification.Level) (*CitedAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected := make([]RetrievalResult, 0, e.topK)
	for _, r := range results {
		if r.Confidence >= e.answerThreshold {
			selected = append(selected, r)
		}
		if len(selected) == e.topK {
			break
		}
	}
	if len(selected) == 0 {
		slog.Info("No candidates cleared the answer threshold",
			"candidates", len(results), "threshold", e.answerThreshold)
		return refusal(ceiling), nil
	}

	contextBlock, lookup := buildContextBlock(selected)
	prompt := fmt.Sprintf(promptTemplate, RefusalAnswer, contextBlock, question)

	temperature := float32(0.1)
	raw, err := e.client.Generate(ctx, prompt, llm.GenerationParams{Temperature: &temperature})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("Generation failed, refusing", "error", err)
		return refusal(ceiling), nil
	}

	answer := strings.TrimSpace(thinkPattern.ReplaceAllString(raw, ""))
	citations := parseCitations(answer, lookup)
	if len(citations) == 0 {
		// Text citing none of the supplied sources is not attributable;
		// it is rejected, not trimmed.
		slog.Warn("Generated answer cited no retrieved source, refusing")
		return refusal(ceiling), nil
	}

	overall := citations[0].Confidence
	for _, c := range citations[1:] {
		if c.Confidence < overall {
			overall = c.Confidence
		}
	}

	return &CitedAnswer{
		Answer:      answer,
		Citations:   citations,
		Confidence:  overall,
		Ceiling:     ceiling,
		SourcesUsed: len(citations),
	}, nil
}

func refusal(ceiling classification.Level) *CitedAnswer {
	return &CitedAnswer{
		Answer:        RefusalAnswer,
		Citations:     []Citation{},
		Confidence:    0,
		Ceiling:       ceiling,
		LowConfidence: true,
	}
}

// buildContextBlock formats candidates for the prompt and returns a
// lookup from the source name shown to the model back to the candidate.
func buildContextBlock(selected []RetrievalResult) (string, map[string]RetrievalResult) {
	lookup := make(map[string]RetrievalResult, len(selected))
	blocks := make([]string, 0, len(selected))
	for i, r := range selected {
		name := friendlySource(r.Source)
		if _, taken := lookup[name]; !taken {
			lookup[name] = r
		}
		blocks = append(blocks, fmt.Sprintf("[%d] Source: %s\n%s", i+1, name, r.Content))
	}
	return strings.Join(blocks, "\n\n"), lookup
}

// parseCitations extracts [Source: ...] references that match a supplied
// candidate. References to unknown sources are dropped.
func parseCitations(answer string, lookup map[string]RetrievalResult) []Citation {
	seen := make(map[string]bool)
	var citations []Citation
	for _, match := range citationPattern.FindAllStringSubmatch(answer, -1) {
		name := strings.TrimSpace(match[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		r, ok := lookup[name]
		if !ok {
			continue
		}
		quote := truncateQuote(r.Content, 200)
		citations = append(citations, Citation{
			Source:     name,
			DocumentID: r.DocumentID,
			Quote:      quote,
			Confidence: r.Confidence,
		})
	}
	return citations
}

// truncateQuote caps a citation quote at max bytes without splitting a
// multi-byte rune, so quotes stay valid UTF-8 in the response JSON.
func truncateQuote(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// friendlySource turns "ordinances/noise_ordinance.md" into "Noise
// Ordinance" for the prompt and citations.
func friendlySource(raw string) string {
	base := filepath.Base(raw)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return raw
	}
	return strings.Join(words, " ")
}
