// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ginkgo-AI/MuniciPal-sub001/pkg/logging"
	"github.com/Ginkgo-AI/MuniciPal-sub001/services/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant server in-process",
	Long: `Starts the same server as the municipald binary, configured from the
environment. Convenient for development; deployments should run
municipald directly.`,
	Run: runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServeCommand(_ *cobra.Command, _ []string) {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
		LogDir:  os.Getenv("LOG_DIR"),
		Service: "municipald",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cfg := orchestrator.ConfigFromEnv()
	svc, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}
	defer svc.Close()

	if err := svc.Run(); err != nil {
		log.Fatalf("Orchestrator error: %v", err)
	}
}
