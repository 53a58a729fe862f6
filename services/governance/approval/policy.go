// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package approval

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	_ "embed"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// embeddedPolicies holds the raw bytes of 'approval_policies.yaml', baked
// into the binary at compile time. The shipped policy cannot be edited on
// the host without recompiling; deployments that need local overrides set
// an override path, which is watched and hot-reloaded.
//
//go:embed approval_policies.yaml
var embeddedPolicies []byte

// policySet is the parsed, swappable gate table. Reads take the RLock so
// a hot reload never tears a submit decision in half.
type policySet struct {
	mu    sync.RWMutex
	gates map[string]GateDefinition
}

func newPolicySet(raw []byte) (*policySet, error) {
	gates, err := parsePolicy(raw)
	if err != nil {
		return nil, err
	}
	return &policySet{gates: gates}, nil
}

func readPolicyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read approval policy %s: %w", path, err)
	}
	return raw, nil
}

func parsePolicy(raw []byte) (map[string]GateDefinition, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval policy: %w", err)
	}
	if len(file.Gates) == 0 {
		return nil, fmt.Errorf("approval policy defines no gates")
	}
	for action, gate := range file.Gates {
		if !gate.ClassificationMinimum.Valid() {
			return nil, fmt.Errorf("gate %q has no classification minimum", action)
		}
	}
	return file.Gates, nil
}

// gate returns the definition for an action, if any.
func (p *policySet) gate(action string) (GateDefinition, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	def, ok := p.gates[action]
	return def, ok
}

// replace swaps in a freshly parsed gate table.
func (p *policySet) replace(gates map[string]GateDefinition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gates = gates
}

// watchOverride reloads the gate table whenever the override file
// changes. A malformed override is logged and skipped; the last good
// table stays in effect, so a bad edit can never drop all gating.
func (p *policySet) watchOverride(path string, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create policy watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch approval policy %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				raw, err := os.ReadFile(path)
				if err != nil {
					slog.Error("Failed to read approval policy override", "path", path, "error", err)
					continue
				}
				gates, err := parsePolicy(raw)
				if err != nil {
					slog.Error("Ignoring malformed approval policy override", "path", path, "error", err)
					continue
				}
				p.replace(gates)
				slog.Info("Reloaded approval policy override", "path", path, "gates", len(gates))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Approval policy watcher error", "error", err)
			}
		}
	}()
	return nil
}
