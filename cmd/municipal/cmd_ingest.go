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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ginkgo-AI/MuniciPal-sub001/pkg/ux"
)

var (
	ingestResourceType string
	ingestUncertain    bool
	ingestExternal     bool

	ingestCmd = &cobra.Command{
		Use:   "ingest [file or directory path]",
		Short: "Index local documents into the assistant's knowledge base",
		Long: `Reads one or more files or directories and submits each file to
municipald for chunking, classification, and indexing. The resource
type drives classification; when unsure, pass --uncertain so the
classifier escalates rather than underprotects.`,
		Args: cobra.MinimumNArgs(1),
		Run:  runIngestCommand,
	}
)

func init() {
	ingestCmd.Flags().StringVar(&ingestResourceType, "resource-type", "", "resource type for classification (required)")
	ingestCmd.Flags().BoolVar(&ingestUncertain, "uncertain", false, "mark the resource type as a guess; classification escalates")
	ingestCmd.Flags().BoolVar(&ingestExternal, "external", false, "mark content as originating outside municipal systems")
	_ = ingestCmd.MarkFlagRequired("resource-type")
	rootCmd.AddCommand(ingestCmd)
}

func runIngestCommand(_ *cobra.Command, args []string) {
	cfg := loadConfig()

	var files []string
	for _, path := range args {
		err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			log.Fatalf("Error collecting files from %s: %v", path, err)
		}
	}
	if len(files) == 0 {
		log.Fatal("No files found to ingest")
	}

	ux.Title(fmt.Sprintf("Ingesting %d file(s) as resource type '%s'", len(files), ingestResourceType))

	failures := 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			ux.FileStatus(file, ux.IconWarning, err.Error())
			failures++
			continue
		}

		var resp struct {
			Chunks         int    `json:"chunks"`
			Indexed        int    `json:"indexed"`
			Classification string `json:"classification"`
		}
		err = call(cfg, "POST", "/v1/documents", map[string]any{
			"source":          file,
			"title":           strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
			"resource_type":   ingestResourceType,
			"content":         string(content),
			"uncertain":       ingestUncertain,
			"external_source": ingestExternal,
		}, &resp)
		if err != nil {
			ux.FileStatus(file, ux.IconError, err.Error())
			failures++
			continue
		}
		ux.FileStatus(file, ux.IconSuccess,
			fmt.Sprintf("%d chunk(s) indexed at %s", resp.Indexed, resp.Classification))
	}

	ux.Summary(len(files)-failures, failures, len(files))
	if failures > 0 {
		log.Fatalf("%d of %d file(s) failed", failures, len(files))
	}
}
