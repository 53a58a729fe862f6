// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package classification assigns sensitivity levels to municipal resources.
//
// The engine is rule-based: an ordered list of (resource types, level)
// rules is loaded from embedded YAML and evaluated first-match-wins. When
// no rule matches, the engine returns its configured default, which is
// required to be the most restrictive level available. Unclassified data
// is never treated as public by omission.
//
// Classify is pure and deterministic. The engine performs no I/O after
// construction and is safe for concurrent use.
package classification

import (
	"fmt"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification/enforcement"
	"gopkg.in/yaml.v3"
)

// Engine evaluates classification rules in priority order.
type Engine struct {
	rules        []Rule
	defaultLevel Level
	overrides    []ContextOverride
}

// NewEngine builds an engine from the rule set embedded in the binary.
//
// # Description
//
// Unmarshals the embedded YAML rule file, validates the default level, and
// returns a ready engine. Baking the rules into the binary means the
// classification policy cannot be changed on the host without recompiling.
//
// # Outputs
//
//   - *Engine: Fully initialized engine.
//   - error: Non-nil if the embedded YAML is malformed or declares a
//     default below Restricted.
func NewEngine() (*Engine, error) {
	return newEngineFromYAML(enforcement.ClassificationRules)
}

// NewEngineFromConfig builds an engine from a caller-supplied YAML rule
// file. Used by tests and by deployments that ship a reviewed override.
func NewEngineFromConfig(raw []byte) (*Engine, error) {
	return newEngineFromYAML(raw)
}

func newEngineFromYAML(raw []byte) (*Engine, error) {
	var file RuleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classification rules: %w", err)
	}

	// Fail closed: absent or weaker defaults are rejected at construction.
	// An unmatched resource must classify as Restricted, never lower.
	defaultLevel := Restricted
	if file.DefaultLevel != nil {
		if *file.DefaultLevel != Restricted {
			return nil, fmt.Errorf(
				"default classification must be %q, rule file declares %q",
				Restricted, *file.DefaultLevel)
		}
		defaultLevel = *file.DefaultLevel
	}

	for i, rule := range file.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("classification rule %d has no name", i)
		}
		if !rule.Level.Valid() {
			return nil, fmt.Errorf("classification rule %q has no level", rule.Name)
		}
	}

	return &Engine{
		rules:        file.Rules,
		defaultLevel: defaultLevel,
		overrides:    file.ContextOverrides,
	}, nil
}

// Classify determines the sensitivity level for a resource type.
//
// # Description
//
// Rules are evaluated in file order; the first rule whose resource type
// list contains resourceType decides the base level. When no rule matches
// the configured default (Restricted) applies. Context hints may then
// escalate the level, never lower it.
//
// Classify is deterministic: identical inputs always produce identical
// output. It performs no I/O and never fails.
//
// # Inputs
//
//   - resourceType: Type identifier of the resource being classified,
//     e.g. "ordinance", "meeting_minutes", "case_file".
//   - hints: Contextual escalation signals. Zero value applies none.
//
// # Outputs
//
//   - Level: The classification to tag the resource with.
func (e *Engine) Classify(resourceType string, hints Hints) Level {
	level := e.defaultLevel

	for _, rule := range e.rules {
		if rule.Matches(resourceType) {
			level = rule.Level
			break
		}
	}

	return e.applyOverrides(level, hints)
}

// applyOverrides escalates the level per the configured context overrides.
func (e *Engine) applyOverrides(level Level, hints Hints) Level {
	for _, override := range e.overrides {
		switch override.Condition {
		case "uncertain":
			if hints.Uncertain && override.EscalateTo != nil && *override.EscalateTo > level {
				level = *override.EscalateTo
			}
		case "external_source":
			if hints.ExternalSource && override.Minimum != nil && *override.Minimum > level {
				level = *override.Minimum
			}
		}
	}
	return level
}

// Rule returns the first rule matching the resource type, or false when
// the type would fall through to the default.
func (e *Engine) Rule(resourceType string) (Rule, bool) {
	for _, rule := range e.rules {
		if rule.Matches(resourceType) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the loaded rule list, in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// DefaultLevel returns the level applied when no rule matches.
func (e *Engine) DefaultLevel() Level {
	return e.defaultLevel
}
