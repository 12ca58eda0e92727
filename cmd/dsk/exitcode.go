// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
	"github.com/xtekky/deepseek4free/lib/apierror"
	"github.com/xtekky/deepseek4free/lib/deepseek"
)

// Exit codes by failure class.
const (
	exitFailure       = 1
	exitUsage         = 2
	exitAuth          = 3
	exitRateLimit     = 4
	exitBotBlocked    = 5
	exitCookieRefresh = 6
	exitPowUnsolvable = 7
	exitNetwork       = 8
	exitProtocol      = 9
	exitInterrupted   = 130
)

// withExitCode attaches the exit code for err's failure class. Errors
// that already carry a code are returned unchanged.
func withExitCode(err error) error {
	var coded *cli.ExitError
	if errors.As(err, &coded) {
		return err
	}
	return &cli.ExitError{Code: exitCode(err), Err: err}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, deepseek.ErrInvalidRequest):
		return exitUsage
	}
	switch apierror.KindOf(err) {
	case apierror.KindAuthentication:
		return exitAuth
	case apierror.KindRateLimit:
		return exitRateLimit
	case apierror.KindBotBlocked:
		return exitBotBlocked
	case apierror.KindCookieRefresh:
		return exitCookieRefresh
	case apierror.KindPowUnsolvable:
		return exitPowUnsolvable
	case apierror.KindNetwork:
		return exitNetwork
	case apierror.KindProtocol, apierror.KindStreamDecode:
		return exitProtocol
	}
	return exitFailure
}

// retryHint returns a line for stderr when err is a failure that may
// clear if the command is run again later, or "" otherwise.
func retryHint(err error) string {
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) || !apiErr.Retryable() {
		return ""
	}
	switch apiErr.Kind {
	case apierror.KindRateLimit:
		return "hint: rate limited by the server; wait before sending again"
	case apierror.KindBotBlocked:
		return "hint: the bot challenge was not cleared; check the clearance service with 'dsk cookies refresh', then retry"
	default:
		return "hint: the failure below may be temporary; run the command again"
	}
}
