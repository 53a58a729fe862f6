// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package classification

import (
	"testing"
)

func TestEngineClassify(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}

	tests := []struct {
		name         string
		resourceType string
		hints        Hints
		want         Level
	}{
		{
			name:         "ordinance is public",
			resourceType: "ordinance",
			want:         Public,
		},
		{
			name:         "meeting minutes are public",
			resourceType: "meeting_minutes",
			want:         Public,
		},
		{
			name:         "internal memo is internal",
			resourceType: "internal_memo",
			want:         Internal,
		},
		{
			name:         "case file is sensitive",
			resourceType: "case_file",
			want:         Sensitive,
		},
		{
			name:         "personnel file is restricted",
			resourceType: "personnel_file",
			want:         Restricted,
		},
		{
			name:         "unknown resource fails closed to restricted",
			resourceType: "mystery_blob",
			want:         Restricted,
		},
		{
			name:         "empty resource type fails closed",
			resourceType: "",
			want:         Restricted,
		},
		{
			name:         "uncertain hint escalates public to sensitive",
			resourceType: "ordinance",
			hints:        Hints{Uncertain: true},
			want:         Sensitive,
		},
		{
			name:         "uncertain hint never lowers restricted",
			resourceType: "legal_hold",
			hints:        Hints{Uncertain: true},
			want:         Restricted,
		},
		{
			name:         "external source enforces internal minimum",
			resourceType: "faq",
			hints:        Hints{ExternalSource: true},
			want:         Internal,
		},
		{
			name:         "external source does not lower sensitive",
			resourceType: "case_file",
			hints:        Hints{ExternalSource: true},
			want:         Sensitive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Classify(tc.resourceType, tc.hints)
			if got != tc.want {
				t.Errorf("Classify(%q) = %v, want %v", tc.resourceType, got, tc.want)
			}
		})
	}
}

// TestEngineDeterminism verifies that repeated calls on identical input
// always return identical output.
func TestEngineDeterminism(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}

	inputs := []string{"ordinance", "case_file", "unknown_thing", ""}
	for _, rt := range inputs {
		first := engine.Classify(rt, Hints{})
		for i := 0; i < 50; i++ {
			if got := engine.Classify(rt, Hints{}); got != first {
				t.Fatalf("Classify(%q) returned %v on call %d, first call returned %v",
					rt, got, i, first)
			}
		}
	}
}

func TestEngineRejectsWeakDefault(t *testing.T) {
	weak := []byte(`
default_classification: public
rules:
  - name: anything
    resource_types: [ordinance]
    classification: public
`)
	if _, err := NewEngineFromConfig(weak); err == nil {
		t.Fatal("Expected engine construction to reject a non-restricted default")
	}
}

func TestEngineRejectsUnknownLevel(t *testing.T) {
	bad := []byte(`
default_classification: restricted
rules:
  - name: broken
    resource_types: [ordinance]
    classification: top_secret
`)
	if _, err := NewEngineFromConfig(bad); err == nil {
		t.Fatal("Expected engine construction to reject an unknown level")
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(Public < Internal && Internal < Sensitive && Sensitive < Restricted) {
		t.Fatal("Classification levels are not totally ordered")
	}

	if !Public.AtMost(Internal) {
		t.Error("Public should be at most Internal")
	}
	if Restricted.AtMost(Sensitive) {
		t.Error("Restricted must not be at most Sensitive")
	}
	if !Sensitive.AtMost(Sensitive) {
		t.Error("A level is at most itself")
	}
}

func TestParseLevelRoundTrip(t *testing.T) {
	for _, level := range []Level{Public, Internal, Sensitive, Restricted} {
		parsed, err := ParseLevel(level.String())
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", level.String(), err)
		}
		if parsed != level {
			t.Errorf("ParseLevel(%q) = %v, want %v", level.String(), parsed, level)
		}
	}

	if _, err := ParseLevel("classified"); err == nil {
		t.Error("ParseLevel should reject unknown names")
	}
}

func TestEngineRuleLookup(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("Failed to initialize engine: %v", err)
	}

	rule, ok := engine.Rule("ordinance")
	if !ok {
		t.Fatal("Expected a rule for ordinance")
	}
	if rule.Level != Public {
		t.Errorf("ordinance rule level = %v, want Public", rule.Level)
	}

	if _, ok := engine.Rule("mystery_blob"); ok {
		t.Error("Expected no rule for an unknown resource type")
	}

	if engine.DefaultLevel() != Restricted {
		t.Errorf("DefaultLevel = %v, want Restricted", engine.DefaultLevel())
	}
}
