// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
)

type sessionOptions struct {
	globalOptions
	tokenFile string
}

func sessionCommand(stdout, stderr io.Writer) *cli.Command {
	var options sessionOptions
	return &cli.Command{
		Name:    "session",
		Summary: "Create a chat session and print its id",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("session", pflag.ContinueOnError)
			options.register(flagSet)
			flagSet.StringVar(&options.tokenFile, "token-file", "", "file holding the bearer token (\"-\" for stdin)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument %q", args[0])
			}
			env, err := options.loadEnvironment(stderr)
			if err != nil {
				return err
			}
			session, err := env.openSession(options.tokenFile)
			if err != nil {
				return err
			}
			defer session.Close()

			sessionID, err := session.client.CreateSession(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, sessionID)
			return nil
		},
	}
}
