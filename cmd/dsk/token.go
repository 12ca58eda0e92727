// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
	"github.com/xtekky/deepseek4free/lib/secret"
)

// tokenEnvironmentVariable holds the bearer token when no file is
// given.
const tokenEnvironmentVariable = "DEEPSEEK_AUTH_TOKEN"

// resolveToken finds the bearer token: flagPath, then the environment,
// then configPath, then a no-echo prompt when stdin is a terminal.
func resolveToken(flagPath, configPath string, stdin *os.File, stderr io.Writer) (*secret.Buffer, error) {
	if flagPath != "" {
		return readToken(flagPath)
	}
	token, err := secret.FromEnv(tokenEnvironmentVariable)
	if err != nil {
		return nil, err
	}
	if token != nil {
		return token, nil
	}
	if configPath != "" {
		return readToken(configPath)
	}
	return promptToken(stdin, stderr)
}

func readToken(path string) (*secret.Buffer, error) {
	token, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	return token, nil
}

func promptToken(stdin *os.File, stderr io.Writer) (*secret.Buffer, error) {
	descriptor := int(stdin.Fd())
	if !term.IsTerminal(descriptor) {
		return nil, cli.Usage("no token: set %s, pass --token-file, or run from a terminal", tokenEnvironmentVariable)
	}

	fmt.Fprint(stderr, "DeepSeek token: ")
	tokenBytes, err := term.ReadPassword(descriptor)
	fmt.Fprintln(stderr)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	token, err := secret.NewFromBytes(tokenBytes)
	if err != nil {
		secret.Zero(tokenBytes)
		return nil, cli.Usage("empty token")
	}
	return token, nil
}
