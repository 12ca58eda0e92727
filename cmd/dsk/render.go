// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"

	"github.com/xtekky/deepseek4free/lib/deepseek"
)

// ANSI 256-color codes, matching the rest of the terminal output.
const (
	headingColor  = lipgloss.Color("39")
	thinkingColor = lipgloss.Color("245")
	metaColor     = lipgloss.Color("241")
)

// deltaPrinter writes a response as it streams: thinking fragments
// under a dimmed "Thinking" heading, text under "Response". Notes go
// to a separate writer so the response can be piped. Color is dropped
// for writers that are not terminals.
type deltaPrinter struct {
	writer io.Writer
	notes  io.Writer

	heading  lipgloss.Style
	thinking lipgloss.Style
	meta     lipgloss.Style

	section  string
	thoughts []string
}

func newDeltaPrinter(writer, notes io.Writer) *deltaPrinter {
	renderer := lipgloss.NewRenderer(writer)
	return &deltaPrinter{
		writer:   writer,
		notes:    notes,
		heading:  renderer.NewStyle().Bold(true).Foreground(headingColor),
		thinking: renderer.NewStyle().Italic(true).Foreground(thinkingColor),
		meta:     lipgloss.NewRenderer(notes).NewStyle().Foreground(metaColor),
	}
}

// Print writes one delta. Repeated thinking fragments are printed once.
func (printer *deltaPrinter) Print(delta deepseek.MessageDelta) {
	switch delta.Kind {
	case deepseek.KindThinking:
		if delta.Content == "" || slices.Contains(printer.thoughts, delta.Content) {
			return
		}
		printer.thoughts = append(printer.thoughts, delta.Content)
		printer.enter(deepseek.KindThinking, "Thinking")
		fmt.Fprint(printer.writer, printer.thinking.Render(delta.Content))
	case deepseek.KindText, "":
		if delta.Content == "" {
			return
		}
		printer.enter(deepseek.KindText, "Response")
		fmt.Fprint(printer.writer, delta.Content)
	default:
		if delta.Content == "" {
			return
		}
		printer.enter(delta.Kind, delta.Kind)
		fmt.Fprint(printer.writer, delta.Content)
	}
}

// Finish ends the last section and notes the session to continue in.
func (printer *deltaPrinter) Finish(sessionID, finishReason string) {
	if printer.section != "" {
		fmt.Fprintln(printer.writer)
	}
	note := "session " + sessionID
	if finishReason != "" && finishReason != deepseek.FinishStop {
		note += " (finished: " + finishReason + ")"
	}
	fmt.Fprintln(printer.notes, printer.meta.Render(note))
}

func (printer *deltaPrinter) enter(section, title string) {
	if printer.section == section {
		return
	}
	if printer.section != "" {
		fmt.Fprint(printer.writer, "\n\n")
	}
	printer.section = section
	fmt.Fprintln(printer.writer, printer.heading.Render(title))
}
