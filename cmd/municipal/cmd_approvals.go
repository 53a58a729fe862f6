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

	"github.com/spf13/cobra"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/governance/approval"
)

var (
	approvalStatus string
	denyReason     string

	approvalCmd = &cobra.Command{
		Use:   "approval",
		Short: "Work the approval queue",
		Long:  `List pending approval requests and settle them. The first decision on a request wins; later decisions are rejected.`,
	}
	listApprovalsCmd = &cobra.Command{
		Use:   "list",
		Short: "List approval requests",
		Run:   runListApprovals,
	}
	approveCmd = &cobra.Command{
		Use:   "approve [request-id]",
		Short: "Approve a pending request",
		Args:  cobra.ExactArgs(1),
		Run:   runDecision("approve"),
	}
	denyCmd = &cobra.Command{
		Use:   "deny [request-id]",
		Short: "Deny a pending request",
		Args:  cobra.ExactArgs(1),
		Run:   runDecision("deny"),
	}
)

func init() {
	listApprovalsCmd.Flags().StringVar(&approvalStatus, "status", "pending", "filter by status (pending, approved, denied, all)")
	denyCmd.Flags().StringVar(&denyReason, "reason", "", "reason recorded with the denial")

	approvalCmd.AddCommand(listApprovalsCmd)
	approvalCmd.AddCommand(approveCmd)
	approvalCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(approvalCmd)
}

func runListApprovals(_ *cobra.Command, _ []string) {
	cfg := loadConfig()

	path := "/v1/approvals"
	if approvalStatus != "" && approvalStatus != "all" {
		path += "?status=" + approvalStatus
	}

	var resp struct {
		Requests []approval.Request `json:"requests"`
		Count    int                `json:"count"`
	}
	if err := call(cfg, "GET", path, nil, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}

	if resp.Count == 0 {
		fmt.Println("No approval requests found.")
		return
	}
	for _, req := range resp.Requests {
		fmt.Printf("%s  %-9s %-18s %-10s %s (by %s)\n",
			req.CreatedAt.Format("2006-01-02 15:04"),
			req.Status, req.Action, req.Classification, req.Resource, req.Actor)
		fmt.Printf("    id: %s\n", req.ID)
		if req.DenyReason != "" {
			fmt.Printf("    reason: %s\n", req.DenyReason)
		}
	}
}

func runDecision(decision string) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, args []string) {
		cfg := loadConfig()
		id := args[0]

		body := map[string]string{"decision": decision}
		if decision == "deny" && denyReason != "" {
			body["reason"] = denyReason
		}

		var resp struct {
			Request approval.Request `json:"request"`
		}
		if err := call(cfg, "POST", "/v1/approvals/"+id+"/decision", body, &resp); err != nil {
			log.Fatalf("Error: %v", err)
		}
		fmt.Printf("Request %s is now %s (action: %s, resource: %s)\n",
			resp.Request.ID, resp.Request.Status, resp.Request.Action, resp.Request.Resource)
	}
}
