// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classification

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Level is a data sensitivity classification. Levels form a total order:
// Public < Internal < Sensitive < Restricted. The ordering is the only
// mechanism used for access ceiling comparisons anywhere in the system.
type Level int

const (
	Public Level = iota + 1
	Internal
	Sensitive
	Restricted
)

// levelNames maps Level values to their canonical wire/config strings.
var levelNames = map[Level]string{
	Public:     "public",
	Internal:   "internal",
	Sensitive:  "sensitive",
	Restricted: "restricted",
}

// String returns the canonical lowercase name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid reports whether l is one of the defined classification levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// AtMost reports whether l is at or below the given ceiling.
func (l Level) AtMost(ceiling Level) bool {
	return l <= ceiling
}

// ParseLevel converts a string into a Level. Unknown strings are rejected
// rather than mapped to a default; callers that want fail-closed behavior
// must apply it explicitly so the intent is visible at the call site.
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown classification level %q", s)
}

// MarshalJSON encodes the level as its canonical string.
func (l Level) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid classification level %d", int(l))
	}
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical level string.
func (l *Level) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("classification level must be a JSON string, got %s", string(data))
	}
	parsed, err := ParseLevel(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// UnmarshalYAML decodes a level from config, rejecting unknown values so a
// typo in the rules file fails at engine construction, not at query time.
func (l *Level) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// RuleFile is the top-level structure of the classification rules YAML.
type RuleFile struct {
	Rules            []Rule            `yaml:"rules"`
	DefaultLevel     *Level            `yaml:"default_classification"`
	ContextOverrides []ContextOverride `yaml:"context_overrides"`
}

// Rule maps a set of resource types to a classification level. Rules are
// evaluated in file order and the first match wins.
type Rule struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	ResourceTypes []string `yaml:"resource_types"`
	Level         Level    `yaml:"classification"`
}

// Matches reports whether this rule applies to the given resource type.
func (r Rule) Matches(resourceType string) bool {
	for _, rt := range r.ResourceTypes {
		if rt == resourceType {
			return true
		}
	}
	return false
}

// ContextOverride raises a classification based on contextual hints.
// Overrides only ever escalate; they never lower a level.
type ContextOverride struct {
	// Condition is the hint key the override reacts to. Supported values:
	// "uncertain" and "external_source".
	Condition string `yaml:"condition"`

	// EscalateTo is the level applied when the "uncertain" hint is set.
	EscalateTo *Level `yaml:"escalate_to"`

	// Minimum is the floor applied when the "external_source" hint is set.
	Minimum *Level `yaml:"minimum"`
}

// Hints carries contextual signals into Classify. The zero value applies
// no overrides.
type Hints struct {
	// Uncertain marks content whose provenance or accuracy is in doubt.
	Uncertain bool

	// ExternalSource marks content that originated outside the municipality.
	ExternalSource bool
}
