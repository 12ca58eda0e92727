// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/xtekky/deepseek4free/cmd/dsk/cli"
	"github.com/xtekky/deepseek4free/lib/deepseek"
)

type chatOptions struct {
	globalOptions
	tokenFile string
	sessionID string
	parentID  string
	thinking  bool
	search    bool
	jsonOut   bool
}

func chatCommand(stdout, stderr io.Writer) *cli.Command {
	var options chatOptions
	return &cli.Command{
		Name:    "chat",
		Summary: "Send a prompt and stream the response",
		Description: "Send one prompt and stream the response. Without --session a new\n" +
			"chat session is created and its id printed for follow-up turns.",
		Usage: "dsk chat [flags] PROMPT",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("chat", pflag.ContinueOnError)
			options.register(flagSet)
			flagSet.StringVar(&options.tokenFile, "token-file", "", "file holding the bearer token (\"-\" for stdin)")
			flagSet.StringVar(&options.sessionID, "session", "", "continue this chat session")
			flagSet.StringVar(&options.parentID, "parent", "", "reply under this message id")
			flagSet.BoolVar(&options.thinking, "thinking", false, "enable reasoning")
			flagSet.BoolVar(&options.search, "search", false, "enable web search")
			flagSet.BoolVar(&options.jsonOut, "json", false, "print the final transcript as JSON instead of streaming")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return cli.Usage("a prompt is required\n\nusage: dsk chat [flags] PROMPT")
			}
			return runChat(ctx, &options, prompt, stdout, stderr)
		},
	}
}

// chatResult is the --json output.
type chatResult struct {
	SessionID    string   `json:"session_id"`
	Thinking     []string `json:"thinking,omitempty"`
	Text         string   `json:"text"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

func runChat(ctx context.Context, options *chatOptions, prompt string, stdout, stderr io.Writer) error {
	env, err := options.loadEnvironment(stderr)
	if err != nil {
		return err
	}
	session, err := env.openSession(options.tokenFile)
	if err != nil {
		return err
	}
	defer session.Close()

	sessionID := options.sessionID
	if sessionID == "" {
		sessionID, err = session.client.CreateSession(ctx)
		if err != nil {
			return err
		}
	}

	stream, err := session.client.SendMessage(ctx, deepseek.MessageRequest{
		SessionID:       sessionID,
		Prompt:          prompt,
		ParentMessageID: options.parentID,
		ThinkingEnabled: options.thinking,
		SearchEnabled:   options.search,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	if options.jsonOut {
		for _, err := range stream.All() {
			if err != nil {
				return err
			}
		}
		transcript := stream.Transcript()
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(chatResult{
			SessionID:    sessionID,
			Thinking:     transcript.Thinking,
			Text:         transcript.Text,
			FinishReason: transcript.FinishReason,
		})
	}

	printer := newDeltaPrinter(stdout, stderr)
	for delta, err := range stream.All() {
		if err != nil {
			printer.Finish(sessionID, "")
			return err
		}
		printer.Print(delta)
	}
	printer.Finish(sessionID, stream.Transcript().FinishReason)
	return nil
}
