// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
)

// root builds the command tree. Command output goes to stdout;
// prompts, notes, help, and logs go to stderr.
func root(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "dsk",
		Description: "dsk - chat with DeepSeek from the terminal",
		Output:      stderr,
		Subcommands: []*cli.Command{
			chatCommand(stdout, stderr),
			sessionCommand(stdout, stderr),
			cookiesCommand(stdout, stderr),
			versionCommand(stdout),
		},
		Examples: []cli.Example{
			{Description: "Ask a question with reasoning shown", Command: "dsk chat --thinking 'Why is the sky blue?'"},
			{Description: "Continue an existing conversation", Command: "dsk chat --session 3f2a... --parent 2 'And at sunset?'"},
		},
	}
}
