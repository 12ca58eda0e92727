// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
	"github.com/xtekky/deepseek4free/lib/clearance"
	"github.com/xtekky/deepseek4free/lib/sealed"
)

func cookiesCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "cookies",
		Summary: "Manage the stored clearance cookies",
		Subcommands: []*cli.Command{
			cookiesRefreshCommand(stdout, stderr),
			cookiesShowCommand(stdout, stderr),
			cookiesKeygenCommand(stdout, stderr),
		},
	}
}

func cookiesRefreshCommand(stdout, stderr io.Writer) *cli.Command {
	var options globalOptions
	return &cli.Command{
		Name:    "refresh",
		Summary: "Fetch new cookies from the bypass service and save them",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("refresh", pflag.ContinueOnError)
			options.register(flagSet)
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
			store := env.cookieStore()
			snapshot, err := clearance.SaveOnRefresh(env.serviceRefresher(), store, env.logger).Refresh(ctx)
			if err != nil {
				return err
			}
			printSnapshot(stdout, store.Path, snapshot)
			return nil
		},
	}
}

func cookiesShowCommand(stdout, stderr io.Writer) *cli.Command {
	var options globalOptions
	return &cli.Command{
		Name:    "show",
		Summary: "Describe the stored cookies without printing their values",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			options.register(flagSet)
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument %q", args[0])
			}
			env, err := options.loadEnvironment(stderr)
			if err != nil {
				return err
			}
			store := env.cookieStore()
			snapshot, err := store.Load()
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no cookie file at %s (run 'dsk cookies refresh')", store.Path)
			}
			if err != nil {
				return err
			}
			printSnapshot(stdout, store.Path, snapshot)
			return nil
		},
	}
}

func printSnapshot(writer io.Writer, path string, snapshot clearance.Snapshot) {
	fmt.Fprintf(writer, "file:       %s\n", path)
	fmt.Fprintf(writer, "cookies:    %s\n", strings.Join(snapshot.Names(), ", "))
	fmt.Fprintf(writer, "clearance:  %t\n", snapshot.HasClearance())
	fmt.Fprintf(writer, "user agent: %s\n", snapshot.UserAgent)
}

func cookiesKeygenCommand(stdout, stderr io.Writer) *cli.Command {
	var options globalOptions
	var identityFile string
	var force bool
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an age identity for sealing the cookie file",
		Description: "Generate an age identity for sealing the cookie file. The identity\n" +
			"is written to --identity-file (default cookies.identity_file) and\n" +
			"the recipient is printed; add it to cookies.recipients.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			options.register(flagSet)
			flagSet.StringVar(&identityFile, "identity-file", "", "where to write the identity")
			flagSet.BoolVar(&force, "force", false, "overwrite an existing identity file")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument %q", args[0])
			}
			env, err := options.loadEnvironment(stderr)
			if err != nil {
				return err
			}
			path := identityFile
			if path == "" {
				path = env.config.Cookies.IdentityFile
			}
			if path == "" {
				return cli.Usage("no identity file: pass --identity-file or set cookies.identity_file")
			}
			publicKey, err := writeIdentity(path, force)
			if err != nil {
				return err
			}
			env.logger.Info("identity written", "path", path)
			fmt.Fprintln(stdout, publicKey)
			return nil
		},
	}
}

// writeIdentity generates a keypair, writes the private half to path
// with mode 0600, and returns the public half.
func writeIdentity(path string, force bool) (string, error) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return "", err
	}
	defer keypair.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", cli.Usage("%s already exists (use --force to replace it)", path)
		}
		return "", err
	}
	_, err = fmt.Fprintf(file, "# public key: %s\n", keypair.PublicKey)
	if err == nil {
		_, err = file.Write(keypair.PrivateKey.Bytes())
	}
	if err == nil {
		_, err = file.Write([]byte{'\n'})
	}
	if err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	return keypair.PublicKey, nil
}
