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
	"net/url"

	"github.com/spf13/cobra"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/audit"
)

var (
	auditActor   string
	auditAction  string
	auditSession string

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}
	auditQueryCmd = &cobra.Command{
		Use:   "query",
		Short: "Query audit entries",
		Run:   runAuditQuery,
	}
	auditVerifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit trail's hash chain",
		Long:  `Asks municipald to recompute every hash in the trail. An intact chain proves no entry was altered or removed after the fact.`,
		Run:   runAuditVerify,
	}
)

func init() {
	auditQueryCmd.Flags().StringVar(&auditActor, "actor", "", "filter by actor")
	auditQueryCmd.Flags().StringVar(&auditAction, "action", "", "filter by action")
	auditQueryCmd.Flags().StringVar(&auditSession, "session", "", "filter by session id")

	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditQuery(_ *cobra.Command, _ []string) {
	cfg := loadConfig()

	params := url.Values{}
	if auditActor != "" {
		params.Set("actor", auditActor)
	}
	if auditAction != "" {
		params.Set("action", auditAction)
	}
	if auditSession != "" {
		params.Set("session_id", auditSession)
	}
	path := "/v1/audit"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp struct {
		Entries []audit.Entry `json:"entries"`
		Count   int           `json:"count"`
	}
	if err := call(cfg, "GET", path, nil, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if resp.Count == 0 {
		fmt.Println("No audit entries matched.")
		return
	}
	for _, entry := range resp.Entries {
		e := entry.Event
		fmt.Printf("#%-5d %s  %-14s %-9s %-16s %-10s %s\n",
			entry.Sequence,
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Actor, e.Tier, e.Action, e.Outcome, e.Resource)
	}
	fmt.Printf("\n%d entries.\n", resp.Count)
}

func runAuditVerify(_ *cobra.Command, _ []string) {
	cfg := loadConfig()

	var resp struct {
		Intact bool `json:"intact"`
	}
	if err := call(cfg, "GET", "/v1/audit/verify", nil, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	if resp.Intact {
		fmt.Println("Audit chain verified: intact.")
		return
	}
	log.Fatal("AUDIT CHAIN BROKEN: the trail has been altered after the fact.")
}
