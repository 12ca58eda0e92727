// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xtekky/deepseek4free/lib/deepseek"
)

func TestDeltaPrinterSections(t *testing.T) {
	t.Parallel()

	var output, notes bytes.Buffer
	printer := newDeltaPrinter(&output, &notes)
	for _, delta := range []deepseek.MessageDelta{
		{Content: "Let me think.", Kind: deepseek.KindThinking},
		{Content: "Let me think.", Kind: deepseek.KindThinking},
		{Content: "", Kind: deepseek.KindThinking},
		{Content: "Hello", Kind: deepseek.KindText},
		{Content: ", world", Kind: deepseek.KindText},
		{Content: "", Kind: deepseek.KindText, FinishReason: deepseek.FinishStop},
	} {
		printer.Print(delta)
	}
	printer.Finish("s1", deepseek.FinishStop)

	want := "Thinking\nLet me think.\n\nResponse\nHello, world\n"
	if output.String() != want {
		t.Errorf("output = %q, want %q", output.String(), want)
	}
	if notes.String() != "session s1\n" {
		t.Errorf("notes = %q, want %q", notes.String(), "session s1\n")
	}
}

func TestDeltaPrinterUnfinished(t *testing.T) {
	t.Parallel()

	var output, notes bytes.Buffer
	printer := newDeltaPrinter(&output, &notes)
	printer.Print(deepseek.MessageDelta{Content: "partial", Kind: deepseek.KindText})
	printer.Finish("s9", "length")

	if !strings.Contains(notes.String(), "finished: length") {
		t.Errorf("notes = %q, want finish reason", notes.String())
	}
}

func TestDeltaPrinterNothingPrinted(t *testing.T) {
	t.Parallel()

	var output, notes bytes.Buffer
	newDeltaPrinter(&output, &notes).Finish("s1", "")
	if output.Len() != 0 {
		t.Errorf("output = %q, want empty", output.String())
	}
}
