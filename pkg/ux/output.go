// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the municipal CLI.
//
// Output degrades to plain text when NO_COLOR is set or when plain
// mode is enabled, so the CLI stays scriptable.
package ux

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

// Municipal color palette. Civic blues and greens.
var (
	ColorCivicBlue   = lipgloss.Color("#2E6FB7") // Primary - headers, brand
	ColorCivicLight  = lipgloss.Color("#5C9BD6") // Interactive elements
	ColorCivicDeep   = lipgloss.Color("#1D4E7E") // Borders, accents
	ColorParkGreen   = lipgloss.Color("#3FA66A") // Success
	ColorRecordAmber = lipgloss.Color("#E0A93D") // Warnings, pending approvals
	ColorStopRed     = lipgloss.Color("#D64545") // Errors, denials
	ColorGranite     = lipgloss.Color("#6B7680") // Muted text
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorCivicBlue),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorCivicLight),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorGranite),
	Success:   lipgloss.NewStyle().Foreground(ColorParkGreen),
	Warning:   lipgloss.NewStyle().Foreground(ColorRecordAmber),
	Error:     lipgloss.NewStyle().Foreground(ColorStopRed),
	Highlight: lipgloss.NewStyle().Foreground(ColorCivicBlue).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorCivicDeep).
		Padding(0, 1),
}

// plain switches all helpers to unstyled line output. Atomic so
// commands can flip it after flag parsing without racing the spinner.
var plain atomic.Bool

func init() {
	if os.Getenv("NO_COLOR") != "" {
		plain.Store(true)
	}
}

// SetPlain enables or disables plain output mode.
func SetPlain(on bool) { plain.Store(on) }

// Plain reports whether plain output mode is active.
func Plain() bool { return plain.Load() }

// Icon provides themed status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling.
func (i Icon) Render() string {
	if Plain() {
		return string(i)
	}
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Title prints a styled title line.
func Title(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark.
func Success(text string) {
	if Plain() {
		fmt.Printf("OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message.
func Warning(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message.
func Error(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message.
func Info(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text.
func Muted(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints content under a title in a rounded box.
func Box(title, content string) {
	if Plain() {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(72)
	fmt.Println(boxStyle.Render(Styles.Title.Render(title) + "\n" + content))
}

// FileStatus prints a file path with its per-file outcome.
func FileStatus(path string, status Icon, reason string) {
	if Plain() {
		fmt.Printf("%s\t%s\t%s\n", status, path, reason)
		return
	}
	if reason != "" {
		fmt.Printf("%s %s %s\n", status.Render(), path, Styles.Muted.Render("("+reason+")"))
		return
	}
	fmt.Printf("%s %s\n", status.Render(), path)
}

// Summary prints ingestion counts on one line.
func Summary(succeeded, failed, total int) {
	if Plain() {
		fmt.Printf("SUMMARY: ok=%d failed=%d total=%d\n", succeeded, failed, total)
		return
	}
	fmt.Printf("\n%s %s  %s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", succeeded)), Styles.Muted.Render("ok"),
		Styles.Error.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
		Styles.Bold.Render(fmt.Sprintf("%d", total)), Styles.Muted.Render("total"),
	)
}
