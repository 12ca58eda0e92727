// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
)

func TestRootHelpListsCommands(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := root(&stdout, &stderr).Execute(context.Background(), []string{"--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, name := range []string{"chat", "session", "cookies", "version"} {
		if !strings.Contains(stderr.String(), name) {
			t.Errorf("help missing %q:\n%s", name, stderr.String())
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := root(&stdout, &stderr).Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "dsk ") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestChatRequiresPrompt(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := root(&stdout, &stderr).Execute(context.Background(), []string{"chat", "--thinking"})
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != exitUsage {
		t.Errorf("error = %v, want usage error", err)
	}
}
