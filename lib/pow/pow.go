// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xtekky/deepseek4free/lib/apierror"
	"github.com/xtekky/deepseek4free/lib/powmodule"
)

// Challenge is the descriptor returned by the create_pow_challenge
// endpoint.
type Challenge struct {
	Algorithm  string `json:"algorithm"`
	Challenge  string `json:"challenge"`
	Salt       string `json:"salt"`
	Difficulty int64  `json:"difficulty"`
	ExpireAt   int64  `json:"expire_at"`
	Signature  string `json:"signature"`
	TargetPath string `json:"target_path"`
}

// Validate reports whether the fields the hasher and the server need
// are present.
func (challenge Challenge) Validate() error {
	switch {
	case challenge.Algorithm == "":
		return errors.New("challenge has no algorithm")
	case challenge.Challenge == "":
		return errors.New("challenge has no challenge string")
	case challenge.Signature == "":
		return errors.New("challenge has no signature")
	case challenge.Difficulty < 0:
		return fmt.Errorf("challenge has negative difficulty %d", challenge.Difficulty)
	}
	return nil
}

// Token is the solved response. Answer is nil only for a token that
// was never solved; such a token cannot be encoded.
type Token struct {
	Algorithm  string `json:"algorithm"`
	Challenge  string `json:"challenge"`
	Salt       string `json:"salt"`
	Answer     *int64 `json:"answer"`
	Signature  string `json:"signature"`
	TargetPath string `json:"target_path"`
}

// ErrUnsolvedToken is returned by Encode for a token without an
// answer.
var ErrUnsolvedToken = errors.New("pow: token has no answer")

// Encode returns the base64 (standard alphabet, padded) encoding of
// the token's JSON form.
func (token Token) Encode() (string, error) {
	if token.Answer == nil {
		return "", ErrUnsolvedToken
	}
	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("pow: marshaling token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeToken parses an encoded token. Used by tests and diagnostics;
// the client never needs to read a token back.
func DecodeToken(encoded string) (Token, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Token{}, fmt.Errorf("pow: decoding base64: %w", err)
	}
	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return Token{}, fmt.Errorf("pow: decoding token JSON: %w", err)
	}
	return token, nil
}

// Hasher performs the numeric search for one challenge.
// *powmodule.Module implements it.
type Hasher interface {
	Compute(ctx context.Context, input powmodule.Input) (int64, error)
}

// Solver solves challenges with a Hasher.
type Solver struct {
	hasher Hasher
	logger *slog.Logger
}

// NewSolver returns a Solver. A nil logger uses slog.Default().
func NewSolver(hasher Hasher, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{hasher: hasher, logger: logger}
}

// Solve computes the answer for challenge and returns a token with a
// non-nil, non-negative Answer. A hasher that reports no solution, or
// that fails in any other way, yields an *apierror.Error of kind
// KindPowUnsolvable: a token is never returned without an answer.
func (solver *Solver) Solve(ctx context.Context, challenge Challenge) (Token, error) {
	if err := challenge.Validate(); err != nil {
		return Token{}, apierror.Wrap(apierror.KindProtocol, err, "invalid proof-of-work challenge")
	}

	start := time.Now()
	answer, err := solver.hasher.Compute(ctx, powmodule.Input{
		Algorithm:  challenge.Algorithm,
		Challenge:  challenge.Challenge,
		Salt:       challenge.Salt,
		Difficulty: challenge.Difficulty,
		ExpireAt:   challenge.ExpireAt,
	})
	if err != nil {
		if errors.Is(err, powmodule.ErrNoSolution) {
			return Token{}, apierror.Wrap(apierror.KindPowUnsolvable, err,
				fmt.Sprintf("no answer for %s challenge at difficulty %d", challenge.Algorithm, challenge.Difficulty))
		}
		return Token{}, apierror.Wrap(apierror.KindPowUnsolvable, err, "hashing module failed")
	}
	if answer < 0 {
		return Token{}, apierror.New(apierror.KindPowUnsolvable,
			fmt.Sprintf("hashing module returned negative answer %d", answer))
	}

	solver.logger.Debug("proof-of-work solved",
		"algorithm", challenge.Algorithm,
		"difficulty", challenge.Difficulty,
		"target_path", challenge.TargetPath,
		"duration", time.Since(start),
	)

	return Token{
		Algorithm:  challenge.Algorithm,
		Challenge:  challenge.Challenge,
		Salt:       challenge.Salt,
		Answer:     &answer,
		Signature:  challenge.Signature,
		TargetPath: challenge.TargetPath,
	}, nil
}
