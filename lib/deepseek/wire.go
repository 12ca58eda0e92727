// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deepseek

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xtekky/deepseek4free/lib/pow"
)

// Endpoint paths relative to Config.BaseURL.
const (
	createSessionPath   = "/chat_session/create"
	createChallengePath = "/chat/create_pow_challenge"
	completionPath      = "/chat/completion"
)

// ErrInvalidRequest is returned, before any network I/O, for requests
// the server would reject anyway.
var ErrInvalidRequest = errors.New("deepseek: invalid request")

// MessageRequest is one user turn.
type MessageRequest struct {
	// SessionID is the chat session from CreateSession. Required.
	SessionID string

	// Prompt is the user message. Required, non-blank.
	Prompt string

	// ParentMessageID threads the turn under a previous assistant
	// message. Empty starts a new thread root.
	ParentMessageID string

	ThinkingEnabled bool
	SearchEnabled   bool
}

// Validate checks the request before anything is sent.
func (request MessageRequest) Validate() error {
	if request.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return fmt.Errorf("%w: prompt must be a non-empty string", ErrInvalidRequest)
	}
	return nil
}

type createSessionRequest struct {
	CharacterID *string `json:"character_id"`
}

type createChallengeRequest struct {
	TargetPath string `json:"target_path"`
}

type completionRequest struct {
	ChatSessionID   string   `json:"chat_session_id"`
	ParentMessageID *string  `json:"parent_message_id"`
	Prompt          string   `json:"prompt"`
	RefFileIDs      []string `json:"ref_file_ids"`
	ThinkingEnabled bool     `json:"thinking_enabled"`
	SearchEnabled   bool     `json:"search_enabled"`
}

func newCompletionRequest(request MessageRequest) completionRequest {
	wire := completionRequest{
		ChatSessionID:   request.SessionID,
		Prompt:          request.Prompt,
		RefFileIDs:      []string{},
		ThinkingEnabled: request.ThinkingEnabled,
		SearchEnabled:   request.SearchEnabled,
	}
	if request.ParentMessageID != "" {
		parent := request.ParentMessageID
		wire.ParentMessageID = &parent
	}
	return wire
}

// envelope is the JSON wrapper around every non-streaming response.
// A nonzero code with an HTTP 200 is an application-level rejection.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    *struct {
		BizCode    int             `json:"biz_code"`
		BizMessage string          `json:"biz_msg"`
		BizData    json.RawMessage `json:"biz_data"`
	} `json:"data"`
}

// bizData validates the envelope and returns the raw biz_data object.
func (response *envelope) bizData() (json.RawMessage, error) {
	if response.Code != 0 {
		return nil, fmt.Errorf("server returned code %d: %s", response.Code, response.Message)
	}
	if response.Data == nil {
		return nil, errors.New("response has no data field")
	}
	if response.Data.BizCode != 0 {
		return nil, fmt.Errorf("server returned biz_code %d: %s", response.Data.BizCode, response.Data.BizMessage)
	}
	raw := response.Data.BizData
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil, errors.New("response has no biz_data")
	}
	return raw, nil
}

type sessionData struct {
	ID string `json:"id"`
}

type challengeData struct {
	Challenge *pow.Challenge `json:"challenge"`
}
