// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Ginkgo-AI/MuniciPal-sub001/pkg/ux"
)

// Config is the CLI-side configuration, loaded from
// ~/.municipal/config.yaml when present. Flags override file values.
type Config struct {
	ServerURL string `mapstructure:"server_url"`
	Tier      string `mapstructure:"tier"`
	Actor     string `mapstructure:"actor"`
	SessionID string `mapstructure:"session_id"`
}

var (
	flagServer string
	flagTier   string
	flagActor  string
	flagPlain  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "municipald base URL (default http://localhost:12210)")
	rootCmd.PersistentFlags().StringVar(&flagTier, "tier", "", "identity tier to act as (anonymous, verified, authenticated)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "actor id recorded in the audit trail")
	rootCmd.PersistentFlags().BoolVar(&flagPlain, "plain", false, "plain output without colors or spinners")
}

// loadConfig merges the optional config file with flag overrides.
func loadConfig() Config {
	if flagPlain {
		ux.SetPlain(true)
	}

	cfg := Config{ServerURL: "http://localhost:12210"}

	home, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(home, ".municipal", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			v := viper.New()
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err == nil {
				if err := v.Unmarshal(&cfg); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: ignoring malformed %s: %v\n", configPath, err)
				}
			}
		}
	}

	if flagServer != "" {
		cfg.ServerURL = flagServer
	}
	if flagTier != "" {
		cfg.Tier = flagTier
	}
	if flagActor != "" {
		cfg.Actor = flagActor
	}
	if cfg.Tier == "" {
		cfg.Tier = "anonymous"
	}
	return cfg
}

// call performs one JSON request against municipald, attaching the
// identity headers the server's session middleware reads.
func call(cfg Config, method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, cfg.ServerURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-Tier", cfg.Tier)
	if cfg.Actor != "" {
		req.Header.Set("X-Actor-ID", cfg.Actor)
	}
	if cfg.SessionID != "" {
		req.Header.Set("X-Session-ID", cfg.SessionID)
	}

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed (is municipald running at %s?): %w", cfg.ServerURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errBody.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
