// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
	"github.com/xtekky/deepseek4free/lib/version"
)

func versionCommand(stdout io.Writer) *cli.Command {
	var full bool
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&full, "full", false, "include commit and build time")
			return flagSet
		},
		Run: func(_ context.Context, _ []string) error {
			if full {
				fmt.Fprintf(stdout, "dsk %s\n", version.Full())
			} else {
				fmt.Fprintf(stdout, "dsk %s\n", version.Info())
			}
			return nil
		},
	}
}
