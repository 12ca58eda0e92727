// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"

	"github.com/xtekky/deepseek4free/lib/apierror"
	"github.com/xtekky/deepseek4free/lib/clearance"
	"github.com/xtekky/deepseek4free/lib/clock"
	"github.com/xtekky/deepseek4free/lib/impersonate"
	"github.com/xtekky/deepseek4free/lib/netutil"
	"github.com/xtekky/deepseek4free/lib/pow"
)

// DefaultBaseURL is the API root of the hosted service.
const DefaultBaseURL = "https://chat.deepseek.com/api/v0"

// Retry defaults for bot challenges.
const (
	DefaultBotChallengeAttempts = 2
	DefaultRetryDelay           = time.Second
)

// DefaultChallengeMarkers identify a Cloudflare interstitial page.
var DefaultChallengeMarkers = []string{
	"<title>Just a moment...</title>",
	"challenge-platform",
	"cf-browser-verification",
}

// Doer sends one HTTP request. tls-client's HttpClient and
// *fhttp.Client both satisfy it.
type Doer interface {
	Do(request *http.Request) (*http.Response, error)
}

// ChallengeSolver turns a challenge into a token. *pow.Solver
// satisfies it.
type ChallengeSolver interface {
	Solve(ctx context.Context, challenge pow.Challenge) (pow.Token, error)
}

// Config holds the collaborators and tunables of a Client.
type Config struct {
	// BaseURL is the API root. Empty uses DefaultBaseURL.
	BaseURL string

	// Token yields the bearer token. It is read on every request and
	// never logged. Required.
	Token fmt.Stringer

	// HTTPClient sends requests. Required; in production this is a
	// browser-impersonating client from lib/impersonate.
	HTTPClient Doer

	// Solver answers proof-of-work challenges. Required.
	Solver ChallengeSolver

	// Cookies holds the clearance cookies attached to every request.
	// Nil starts with an empty cell.
	Cookies *clearance.Cell

	// Refresher obtains new cookies after a bot challenge. Nil means a
	// detected challenge fails immediately with KindBotBlocked.
	Refresher clearance.Refresher

	// BotChallengeAttempts is the total number of attempts of one call
	// while bot challenges keep appearing. Zero uses
	// DefaultBotChallengeAttempts.
	BotChallengeAttempts int

	// RetryDelay is the pause after a cookie refresh. Zero uses
	// DefaultRetryDelay; negative disables the pause.
	RetryDelay time.Duration

	// ChallengeMarkers overrides DefaultChallengeMarkers.
	ChallengeMarkers []string

	// MaxLineBytes bounds one event stream line. Zero uses
	// DefaultMaxLineBytes.
	MaxLineBytes int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Client talks to the chat API. Safe for concurrent use: calls share
// only the token and the cookie cell, and the cell is replaced
// atomically.
type Client struct {
	baseURL      string
	targetPath   string
	token        fmt.Stringer
	httpClient   Doer
	solver       ChallengeSolver
	cookies      *clearance.Cell
	refresher    clearance.Refresher
	attempts     int
	retryDelay   time.Duration
	markers      []string
	maxLineBytes int
	clock        clock.Clock
	logger       *slog.Logger
}

// New validates config and returns a Client.
func New(config Config) (*Client, error) {
	if config.Token == nil {
		return nil, errors.New("deepseek: Token is required")
	}
	if config.HTTPClient == nil {
		return nil, errors.New("deepseek: HTTPClient is required")
	}
	if config.Solver == nil {
		return nil, errors.New("deepseek: Solver is required")
	}
	if config.BotChallengeAttempts < 0 {
		return nil, fmt.Errorf("deepseek: BotChallengeAttempts must not be negative, got %d", config.BotChallengeAttempts)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("deepseek: parsing BaseURL: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("deepseek: BaseURL %q must be an absolute http(s) URL", baseURL)
	}

	client := &Client{
		baseURL:      baseURL,
		targetPath:   parsed.Path + completionPath,
		token:        config.Token,
		httpClient:   config.HTTPClient,
		solver:       config.Solver,
		cookies:      config.Cookies,
		refresher:    config.Refresher,
		attempts:     config.BotChallengeAttempts,
		retryDelay:   config.RetryDelay,
		markers:      config.ChallengeMarkers,
		maxLineBytes: config.MaxLineBytes,
		clock:        config.Clock,
		logger:       config.Logger,
	}
	if client.cookies == nil {
		client.cookies = &clearance.Cell{}
	}
	if client.attempts == 0 {
		client.attempts = DefaultBotChallengeAttempts
	}
	if client.retryDelay == 0 {
		client.retryDelay = DefaultRetryDelay
	}
	if len(client.markers) == 0 {
		client.markers = DefaultChallengeMarkers
	}
	if client.maxLineBytes <= 0 {
		client.maxLineBytes = DefaultMaxLineBytes
	}
	if client.clock == nil {
		client.clock = clock.Real()
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	return client, nil
}

// Cookies returns the cell the client reads cookies from.
func (client *Client) Cookies() *clearance.Cell {
	return client.cookies
}

// CreateSession starts a chat session and returns its id.
func (client *Client) CreateSession(ctx context.Context) (string, error) {
	return retryBotChallenge(ctx, client, "create session", client.createSession)
}

// FetchPowChallenge requests a proof-of-work challenge for the
// completion endpoint. Each challenge is good for one request.
func (client *Client) FetchPowChallenge(ctx context.Context) (pow.Challenge, error) {
	return retryBotChallenge(ctx, client, "fetch challenge", client.fetchPowChallenge)
}

// SendMessage sends one user turn and returns the streamed response.
// Every attempt fetches and solves a fresh challenge. When the server
// answers with a bot challenge, cookies are refreshed and the whole
// flow is repeated, up to the configured number of attempts.
//
// The caller must drain or Close the returned stream.
func (client *Client) SendMessage(ctx context.Context, request MessageRequest) (*DeltaStream, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	body := newCompletionRequest(request)

	return retryBotChallenge(ctx, client, "send message", func(ctx context.Context) (*DeltaStream, error) {
		challenge, err := client.fetchPowChallenge(ctx)
		if err != nil {
			return nil, err
		}
		token, err := client.solver.Solve(ctx, challenge)
		if err != nil {
			if apierror.KindOf(err) == apierror.KindUnknown {
				err = apierror.Wrap(apierror.KindPowUnsolvable, err, "solving challenge")
			}
			return nil, err
		}
		encoded, err := token.Encode()
		if err != nil {
			return nil, apierror.Wrap(apierror.KindPowUnsolvable, err, "encoding token")
		}

		response, err := client.send(ctx, completionPath, body, encoded, true)
		if err != nil {
			return nil, err
		}
		if mediaType(response.Header.Get("Content-Type")) == "application/json" {
			return nil, completionRejection(response)
		}
		return newDeltaStream(response.Body, client.maxLineBytes, client.logger), nil
	})
}

func (client *Client) createSession(ctx context.Context) (string, error) {
	response, err := client.send(ctx, createSessionPath, createSessionRequest{}, "", false)
	if err != nil {
		return "", err
	}
	raw, err := readEnvelope(response)
	if err != nil {
		return "", err
	}
	var session sessionData
	if err := json.Unmarshal(raw, &session); err != nil {
		return "", protocolError(response.StatusCode, raw, "decoding session", err)
	}
	if session.ID == "" {
		return "", protocolError(response.StatusCode, raw, "session response has no id", nil)
	}
	client.logger.Debug("chat session created", "session", session.ID)
	return session.ID, nil
}

func (client *Client) fetchPowChallenge(ctx context.Context) (pow.Challenge, error) {
	response, err := client.send(ctx, createChallengePath,
		createChallengeRequest{TargetPath: client.targetPath}, "", false)
	if err != nil {
		return pow.Challenge{}, err
	}
	raw, err := readEnvelope(response)
	if err != nil {
		return pow.Challenge{}, err
	}
	var data challengeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return pow.Challenge{}, protocolError(response.StatusCode, raw, "decoding challenge", err)
	}
	if data.Challenge == nil {
		return pow.Challenge{}, protocolError(response.StatusCode, raw, "challenge response has no challenge", nil)
	}
	if err := data.Challenge.Validate(); err != nil {
		return pow.Challenge{}, protocolError(response.StatusCode, raw, "invalid challenge", err)
	}
	return *data.Challenge, nil
}

// send posts payload to path and classifies the response. A returned
// response has status 200 and a body the caller must close.
func (client *Client) send(ctx context.Context, path string, payload any, powToken string, streaming bool) (*http.Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindProtocol, err, "encoding request body")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, apierror.Wrap(apierror.KindProtocol, err, "building request")
	}

	request.Header = BuildHeaders(client.token.String(), powToken)
	if streaming {
		request.Header.Set("accept", "text/event-stream")
	} else {
		request.Header.Set("accept", "application/json")
	}
	snapshot := client.cookies.Load()
	if !snapshot.Empty() {
		request.Header.Set("cookie", snapshot.CookieHeader())
	}
	userAgent := snapshot.UserAgent
	if userAgent == "" {
		userAgent = impersonate.DefaultUserAgent
	}
	request.Header.Set("user-agent", userAgent)

	response, err := client.httpClient.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apierror.Wrap(apierror.KindNetwork, ctxErr, "request to "+path+" abandoned")
		}
		return nil, apierror.Wrap(apierror.KindNetwork, err, "request to "+path+" failed")
	}
	return client.classify(response)
}

// botChallenge is returned by classify when the response is an
// interstitial page rather than an API answer. It never leaves the
// package: retryBotChallenge turns it into a refresh or KindBotBlocked.
type botChallenge struct {
	statusCode int
	body       string
}

func (challenge *botChallenge) Error() string {
	return fmt.Sprintf("bot challenge (HTTP %d)", challenge.statusCode)
}

// classify maps a response to an error or passes it through. A 200
// with an API content type is handed back unread so event streams are
// never buffered. Anything else is read up to netutil.MaxPrefixSize and
// searched for challenge markers.
func (client *Client) classify(response *http.Response) (*http.Response, error) {
	status := response.StatusCode
	if status == http.StatusUnauthorized || status == http.StatusTooManyRequests {
		prefix := netutil.ReadPrefix(response.Body, netutil.MaxPrefixSize)
		response.Body.Close()
		return nil, apierror.FromStatus(status, netutil.FirstLine(prefix))
	}
	if status == http.StatusOK && apiContentType(response.Header.Get("Content-Type")) {
		return response, nil
	}

	prefix := netutil.ReadPrefix(response.Body, netutil.MaxPrefixSize)
	if netutil.ContainsAny(prefix, client.markers) {
		response.Body.Close()
		return nil, &botChallenge{statusCode: status, body: apierror.Snippet(string(prefix))}
	}
	if status == http.StatusOK {
		response.Body = prefixedBody{
			Reader: io.MultiReader(bytes.NewReader(prefix), response.Body),
			Closer: response.Body,
		}
		return response, nil
	}
	response.Body.Close()
	return nil, apierror.FromStatus(status, netutil.FirstLine(prefix))
}

type prefixedBody struct {
	io.Reader
	io.Closer
}

func apiContentType(value string) bool {
	switch mediaType(value) {
	case "text/event-stream", "application/json":
		return true
	}
	return false
}

// mediaType returns the media type of a Content-Type value, or "" when
// it does not parse.
func mediaType(value string) string {
	parsed, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return parsed
}

// completionRejection turns a JSON answer from the completion endpoint
// into an error. The server answers a refused message (an expired
// token, an invalid proof of work) with an envelope carrying a nonzero
// code instead of an event stream.
func completionRejection(response *http.Response) error {
	raw, err := readEnvelope(response)
	if err != nil {
		return err
	}
	return protocolError(response.StatusCode, raw, "completion returned a JSON document instead of an event stream", nil)
}

// retryBotChallenge runs attempt until it stops hitting bot challenges
// or the attempt ceiling is reached. Between attempts the cookies are
// refreshed and replaced as a whole. Any other outcome returns on the
// first occurrence.
func retryBotChallenge[T any](ctx context.Context, client *Client, operation string, attempt func(context.Context) (T, error)) (T, error) {
	var zero T
	for attemptNumber := 1; ; attemptNumber++ {
		client.logger.Debug("sending request",
			"operation", operation,
			"attempt", attemptNumber,
			"ceiling", client.attempts,
		)
		result, err := attempt(ctx)
		var challenge *botChallenge
		if !errors.As(err, &challenge) {
			return result, err
		}

		client.logger.Warn("bot challenge detected",
			"operation", operation,
			"attempt", attemptNumber,
			"status", challenge.statusCode,
		)
		if attemptNumber >= client.attempts || client.refresher == nil {
			message := fmt.Sprintf("bot challenge persisted after %d attempts", attemptNumber)
			if client.refresher == nil {
				message = "bot challenge and no cookie refresher configured"
			}
			return zero, &apierror.Error{
				Kind:       apierror.KindBotBlocked,
				StatusCode: challenge.statusCode,
				Body:       challenge.body,
				Message:    message,
			}
		}

		snapshot, err := client.refresher.Refresh(ctx)
		if err != nil {
			if apierror.KindOf(err) != apierror.KindCookieRefresh {
				err = apierror.Wrap(apierror.KindCookieRefresh, err, "refreshing cookies")
			}
			return zero, err
		}
		client.cookies.Replace(snapshot)
		client.logger.Debug("cookies replaced, retrying",
			"operation", operation,
			"next_attempt", attemptNumber+1,
			"delay", client.retryDelay,
		)

		if err := clock.Sleep(ctx, client.clock, client.retryDelay); err != nil {
			return zero, apierror.Wrap(apierror.KindNetwork, err, operation+" abandoned during retry delay")
		}
	}
}

// readEnvelope decodes a JSON envelope and returns its biz_data. The
// body is closed.
func readEnvelope(response *http.Response) (json.RawMessage, error) {
	defer response.Body.Close()
	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		if netutil.IsConnectionError(err) {
			return nil, apierror.Wrap(apierror.KindNetwork, err, "reading response")
		}
		return nil, protocolError(response.StatusCode, body, "reading response", err)
	}
	var decoded envelope
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, protocolError(response.StatusCode, body, "decoding response envelope", err)
	}
	raw, err := decoded.bizData()
	if err != nil {
		return nil, protocolError(response.StatusCode, body, "unexpected response envelope", err)
	}
	return raw, nil
}

func protocolError(statusCode int, body []byte, message string, cause error) *apierror.Error {
	return &apierror.Error{
		Kind:       apierror.KindProtocol,
		StatusCode: statusCode,
		Body:       apierror.Snippet(string(body)),
		Message:    message,
		Err:        cause,
	}
}
