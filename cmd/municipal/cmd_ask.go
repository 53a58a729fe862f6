// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ginkgo-AI/MuniciPal-sub001/pkg/ux"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question at the configured identity tier",
	Long: `Sends a question to municipald. The answer only draws on documents at
or below the tier's classification ceiling, and every claim carries a
citation. A low-confidence result comes back as a staff referral
instead of a guess.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAskCommand,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAskCommand(_ *cobra.Command, args []string) {
	cfg := loadConfig()
	question := strings.Join(args, " ")

	ux.Muted(fmt.Sprintf("Asking as tier '%s'", cfg.Tier))

	var resp struct {
		Answer rag.CitedAnswer `json:"answer"`
	}
	err := ux.WithSpinner("Waiting for answer", func() error {
		return call(cfg, "POST", "/v1/ask", map[string]string{"question": question}, &resp)
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	ux.Box("Answer", resp.Answer.Answer)

	if len(resp.Answer.Citations) > 0 {
		ux.Title("Sources")
		for i, citation := range resp.Answer.Citations {
			ux.Info(fmt.Sprintf("%d. %s (confidence: %.2f)", i+1, citation.Source, citation.Confidence))
		}
		ux.Muted(fmt.Sprintf("Overall confidence: %.2f (ceiling: %s)",
			resp.Answer.Confidence, resp.Answer.Ceiling))
	} else if resp.Answer.LowConfidence {
		ux.Warning("Referred to staff; no sufficiently confident sources at this tier")
	}
}
