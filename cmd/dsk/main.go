// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtekky/deepseek4free/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root(os.Stdout, os.Stderr).Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		if hint := retryHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		process.Fatal(withExitCode(err))
	}
}
