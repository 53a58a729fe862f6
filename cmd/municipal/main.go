// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command municipal is the operator CLI for the municipal assistant.
// It talks to a running municipald over HTTP.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "municipal",
	Short: "A CLI to operate the municipal assistant",
	Long: `municipal manages a running municipald instance: ingest documents,
ask questions at a chosen identity tier, work the approval queue, and
inspect the audit trail.`,
}

func main() {
	// Execute the root command. Cobra handles parsing the arguments.
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
