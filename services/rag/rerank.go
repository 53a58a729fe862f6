// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rag

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/vectordb"
)

// Re-rank weights. Vector similarity dominates; keyword overlap catches
// exact-term questions the embedding misses; quality discourages
// fragmentary chunks.
const (
	vectorWeight  = 0.5
	keywordWeight = 0.35
	qualityWeight = 0.15
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// rerank re-orders an over-fetched candidate set and trims it to
// finalCount. Raw similarities are left untouched; the combined score is
// used only for selection and ordering.
func rerank(query string, candidates []vectordb.SearchResult, finalCount int) []vectordb.SearchResult {
	if len(candidates) <= finalCount {
		return candidates
	}

	queryTokens := tokenize(query)

	type scored struct {
		combined float64
		result   vectordb.SearchResult
	}
	scoredSet := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		kw := keywordOverlap(queryTokens, tokenize(c.Content))
		quality := contentQuality(c.Content)
		scoredSet = append(scoredSet, scored{
			combined: vectorWeight*c.Similarity + keywordWeight*kw + qualityWeight*quality,
			result:   c,
		})
	}

	sort.SliceStable(scoredSet, func(i, j int) bool {
		return scoredSet[i].combined > scoredSet[j].combined
	})

	out := make([]vectordb.SearchResult, 0, finalCount)
	for _, s := range scoredSet[:finalCount] {
		out = append(out, s.result)
	}
	return out
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// keywordOverlap is the fraction of distinct query tokens present in the
// content.
func keywordOverlap(queryTokens, contentTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	contentSet := make(map[string]bool, len(contentTokens))
	for _, t := range contentTokens {
		contentSet[t] = true
	}
	seen := make(map[string]bool, len(queryTokens))
	hits := 0
	for _, t := range queryTokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		if contentSet[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(seen))
}

// contentQuality scores a chunk on length and information density.
func contentQuality(text string) float64 {
	if text == "" {
		return 0
	}
	lengthScore := float64(len(text)) / 800
	if lengthScore > 1 {
		lengthScore = 1
	}
	alpha := 0
	for _, r := range text {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			alpha++
		}
	}
	alphaRatio := float64(alpha) / float64(len(text))
	return 0.5*lengthScore + 0.5*alphaRatio
}
