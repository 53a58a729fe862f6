// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/identity"
)

var (
	sessionCmd = &cobra.Command{
		Use:   "session",
		Short: "Manage identity sessions",
	}
	createSessionCmd = &cobra.Command{
		Use:   "create",
		Short: "Open a new session on the server",
		Run:   runCreateSession,
	}
	upgradeSessionCmd = &cobra.Command{
		Use:   "upgrade [session-id]",
		Short: "Walk a session up one identity tier",
		Long:  `Requests a verification challenge for the session and completes it interactively. Each upgrade moves exactly one rung up the ladder.`,
		Args:  cobra.ExactArgs(1),
		Run:   runUpgradeSession,
	}
)

func init() {
	sessionCmd.AddCommand(createSessionCmd)
	sessionCmd.AddCommand(upgradeSessionCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runCreateSession(_ *cobra.Command, _ []string) {
	cfg := loadConfig()

	var resp struct {
		Session identity.Session `json:"session"`
	}
	body := map[string]string{"actor": cfg.Actor, "tier": cfg.Tier}
	if err := call(cfg, "POST", "/v1/sessions", body, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Session created: %s (tier: %s)\n", resp.Session.ID, resp.Session.TierName)
	fmt.Println("Store it under session_id in ~/.municipal/config.yaml to reuse it.")
}

func runUpgradeSession(_ *cobra.Command, args []string) {
	cfg := loadConfig()
	id := args[0]

	var challengeResp struct {
		Challenge identity.Challenge `json:"challenge"`
	}
	if err := call(cfg, "POST", "/v1/sessions/"+id+"/upgrade", nil, &challengeResp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	ch := challengeResp.Challenge
	fmt.Printf("Upgrade %s -> %s via %s\n", ch.CurrentTier, ch.TargetTier, ch.Method)

	fmt.Print("Enter verification code: ")
	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("Error reading code: %v", err)
	}

	var result struct {
		Upgrade identity.UpgradeResult `json:"upgrade"`
	}
	err = call(cfg, "POST", "/v1/sessions/"+id+"/upgrade", map[string]string{
		"verification_id": ch.VerificationID,
		"code":            strings.TrimSpace(code),
	}, &result)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Session upgraded: %s -> %s\n", result.Upgrade.PreviousTier, result.Upgrade.NewTier)
}
