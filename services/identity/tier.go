// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package identity defines resident session tiers and their capabilities.
//
// Tiers form a total order: Anonymous < Verified < Authenticated. Each tier
// maps to exactly one classification ceiling (the highest level it may
// view) and a set of actions it may request without an approval gate. The
// mapping is a lookup table, not a type hierarchy; policy changes are data
// changes.
//
// The core never authenticates credentials itself. The session layer hands
// it an (actor ID, Tier) pair and the capability table does the rest.
package identity

import (
	"fmt"

	"github.com/Ginkgo-AI/MuniciPal-sub001/services/classification"
)

// Tier is a resident session tier.
type Tier int

const (
	Anonymous Tier = iota
	Verified
	Authenticated
)

var tierNames = map[Tier]string{
	Anonymous:     "anonymous",
	Verified:      "verified",
	Authenticated: "authenticated",
}

// capability describes what a tier may see and do without gating.
type capability struct {
	ceiling classification.Level
	ungated map[string]bool
}

// capabilities is the per-tier capability table. Restricted never appears
// as a ceiling: restricted content is reachable only through an approved
// gate, never through direct retrieval.
var capabilities = map[Tier]capability{
	Anonymous: {
		ceiling: classification.Public,
		ungated: map[string]bool{
			"ask_question": true,
		},
	},
	Verified: {
		ceiling: classification.Internal,
		ungated: map[string]bool{
			"ask_question":  true,
			"submit_intake": true,
		},
	},
	Authenticated: {
		ceiling: classification.Sensitive,
		ungated: map[string]bool{
			"ask_question":   true,
			"submit_intake":  true,
			"view_own_cases": true,
		},
	},
}

// String returns the canonical lowercase tier name.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Valid reports whether t is a defined tier.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// Ceiling returns the maximum classification level this tier may view.
// Unknown tiers fail closed to the Anonymous ceiling.
func (t Tier) Ceiling() classification.Level {
	if cap, ok := capabilities[t]; ok {
		return cap.ceiling
	}
	return capabilities[Anonymous].ceiling
}

// Ungated reports whether the tier may request the action without an
// approval gate. Unknown tiers and unknown actions are gated.
func (t Tier) Ungated(action string) bool {
	cap, ok := capabilities[t]
	if !ok {
		return false
	}
	return cap.ungated[action]
}

// Next returns the tier one step above t, or false at the top of the
// ladder. Upgrades are single-step: Anonymous -> Verified -> Authenticated.
func (t Tier) Next() (Tier, bool) {
	switch t {
	case Anonymous:
		return Verified, true
	case Verified:
		return Authenticated, true
	default:
		return t, false
	}
}

// ParseTier converts a string into a Tier. Unknown strings are rejected;
// callers treat parse failure as Anonymous so a malformed session header
// can only ever lower privileges.
func ParseTier(s string) (Tier, error) {
	for tier, name := range tierNames {
		if name == s {
			return tier, nil
		}
	}
	return Anonymous, fmt.Errorf("unknown session tier %q", s)
}
