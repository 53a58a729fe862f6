// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import "testing"

func TestSetPlain(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)

	SetPlain(true)
	if !Plain() {
		t.Error("Plain() = false after SetPlain(true)")
	}
	SetPlain(false)
	if Plain() {
		t.Error("Plain() = true after SetPlain(false)")
	}
}

func TestIconRenderPlainMode(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)
	SetPlain(true)

	tests := []struct {
		icon Icon
		want string
	}{
		{IconSuccess, "✓"},
		{IconWarning, "⚠"},
		{IconError, "✗"},
		{IconPending, "○"},
		{IconArrow, "→"},
	}
	for _, tt := range tests {
		if got := tt.icon.Render(); got != tt.want {
			t.Errorf("Icon(%q).Render() = %q in plain mode, want bare icon", tt.icon, got)
		}
	}
}

func TestIconRenderStyledContainsGlyph(t *testing.T) {
	orig := Plain()
	defer SetPlain(orig)
	SetPlain(false)

	// Styled output may add escape codes, but the glyph must survive.
	got := IconSuccess.Render()
	if got == "" {
		t.Fatal("styled icon rendered empty")
	}
	found := false
	for _, r := range got {
		if string(r) == string(IconSuccess) {
			found = true
		}
	}
	if !found {
		t.Errorf("styled render %q does not contain %q", got, IconSuccess)
	}
}
