// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package deepseek

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/xtekky/deepseek4free/lib/apierror"
	"github.com/xtekky/deepseek4free/lib/netutil"
)

// Delta kinds the server is known to send. Others are passed through.
const (
	KindThinking = "thinking"
	KindText     = "text"
)

// FinishStop is the finish reason that ends a response.
const FinishStop = "stop"

// DefaultMaxLineBytes bounds a single event line.
const DefaultMaxLineBytes = 1 << 20

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// MessageDelta is one increment of the assistant's response.
type MessageDelta struct {
	Content string

	// Kind is "thinking", "text", another server-defined kind, or
	// empty when the server omitted it.
	Kind string

	// FinishReason is empty until the server ends the response.
	FinishReason string
}

// Terminal reports whether this delta ends the stream.
func (delta MessageDelta) Terminal() bool {
	return delta.FinishReason == FinishStop
}

type lineKind int

const (
	lineIgnored lineKind = iota
	lineDelta
	lineDone
)

type wireChunk struct {
	Choices []struct {
		Delta *struct {
			Content string `json:"content"`
			Type    string `json:"type"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// DecodeLine decodes one line of the event stream. ok is false for
// lines that carry no delta: blank lines, lines without the "data: "
// prefix, the [DONE] marker, and chunks without a choice delta.
// Malformed JSON on a data line is an error of kind KindStreamDecode.
func DecodeLine(line []byte) (delta MessageDelta, ok bool, err error) {
	delta, kind, err := decodeLine(line)
	return delta, kind == lineDelta, err
}

func decodeLine(line []byte) (MessageDelta, lineKind, error) {
	line = bytes.TrimRight(line, "\r\n")
	payload, found := bytes.CutPrefix(line, []byte(dataPrefix))
	if !found {
		return MessageDelta{}, lineIgnored, nil
	}
	if bytes.HasPrefix(payload, []byte(doneMarker)) {
		return MessageDelta{}, lineDone, nil
	}

	var chunk wireChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return MessageDelta{}, lineIgnored, &apierror.Error{
			Kind:    apierror.KindStreamDecode,
			Body:    apierror.Snippet(string(line)),
			Message: "invalid JSON in event stream",
			Err:     err,
		}
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
		return MessageDelta{}, lineIgnored, nil
	}

	choice := chunk.Choices[0]
	delta := MessageDelta{
		Content: choice.Delta.Content,
		Kind:    choice.Delta.Type,
	}
	if choice.FinishReason != nil {
		delta.FinishReason = *choice.FinishReason
	}
	return delta, lineDelta, nil
}

var errLineTooLong = errors.New("event stream line exceeds limit")

// lineReader splits a byte stream into lines no longer than maxBytes.
// A final line without a trailing newline is still returned.
type lineReader struct {
	reader   *bufio.Reader
	maxBytes int
}

func newLineReader(reader io.Reader, maxBytes int) *lineReader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}
	return &lineReader{
		reader:   bufio.NewReaderSize(reader, 64*1024),
		maxBytes: maxBytes,
	}
}

func (lines *lineReader) next() ([]byte, error) {
	var line []byte
	for {
		fragment, err := lines.reader.ReadSlice('\n')
		line = append(line, fragment...)
		if len(line) > lines.maxBytes {
			return nil, errLineTooLong
		}
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return line, nil
		default:
			return nil, err
		}
	}
}

// Transcript is the accumulated response of a stream.
type Transcript struct {
	// Thinking holds the distinct non-empty thinking fragments in
	// arrival order.
	Thinking []string

	// Text is the concatenated text content.
	Text string

	// FinishReason is the last finish reason seen.
	FinishReason string
}

// DeltaStream yields the deltas of one SendMessage call. Next and All
// must not be called concurrently; Close may be called from any
// goroutine, and unblocks a pending Next.
type DeltaStream struct {
	lines  *lineReader
	body   io.Closer
	logger *slog.Logger

	done           bool
	closedByCaller atomic.Bool
	closeOnce      sync.Once
	closeErr       error

	thinking     []string
	text         strings.Builder
	finishReason string
}

func newDeltaStream(body io.ReadCloser, maxLineBytes int, logger *slog.Logger) *DeltaStream {
	return &DeltaStream{
		lines:  newLineReader(body, maxLineBytes),
		body:   body,
		logger: logger,
	}
}

// NewDeltaStream decodes body as an event stream. SendMessage uses it
// for the completion response; it is exported for replaying captured
// streams.
func NewDeltaStream(body io.ReadCloser, maxLineBytes int, logger *slog.Logger) *DeltaStream {
	if logger == nil {
		logger = slog.Default()
	}
	return newDeltaStream(body, maxLineBytes, logger)
}

// Next returns the next delta. It returns io.EOF after a terminal
// delta, after [DONE], at the end of the body, after an error, and
// after Close. The body is closed as soon as the stream ends.
//
// Errors are *apierror.Error values: KindStreamDecode for malformed
// data, KindNetwork for a connection failure mid-stream.
func (stream *DeltaStream) Next() (MessageDelta, error) {
	for !stream.done && !stream.closedByCaller.Load() {
		line, err := stream.lines.next()
		if err != nil {
			return MessageDelta{}, stream.fail(err)
		}

		delta, kind, err := decodeLine(line)
		if err != nil {
			stream.finish()
			return MessageDelta{}, err
		}

		switch kind {
		case lineDone:
			stream.finish()
		case lineDelta:
			stream.accumulate(delta)
			if delta.Terminal() {
				stream.finish()
			}
			return delta, nil
		default:
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				stream.logger.Debug("ignoring event stream line", "line", apierror.Snippet(string(trimmed)))
			}
		}
	}
	return MessageDelta{}, io.EOF
}

// fail ends the stream after a read error and classifies it.
func (stream *DeltaStream) fail(err error) error {
	closedByCaller := stream.closedByCaller.Load()
	stream.finish()
	switch {
	case errors.Is(err, io.EOF), closedByCaller:
		return io.EOF
	case errors.Is(err, errLineTooLong):
		return apierror.Wrap(apierror.KindStreamDecode, err,
			fmt.Sprintf("line longer than %d bytes", stream.lines.maxBytes))
	case netutil.IsConnectionError(err):
		return apierror.Wrap(apierror.KindNetwork, err, "connection lost mid-stream")
	default:
		return apierror.Wrap(apierror.KindStreamDecode, err, "reading event stream")
	}
}

// All returns an iterator over the remaining deltas. Iteration ends at
// end of stream or after yielding an error. The stream is closed when
// iteration ends, including when the loop body breaks early.
func (stream *DeltaStream) All() iter.Seq2[MessageDelta, error] {
	return func(yield func(MessageDelta, error) bool) {
		defer stream.Close()
		for {
			delta, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(delta, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the connection. Idempotent.
func (stream *DeltaStream) Close() error {
	stream.closedByCaller.Store(true)
	return stream.closeBody()
}

func (stream *DeltaStream) closeBody() error {
	stream.closeOnce.Do(func() {
		stream.closeErr = stream.body.Close()
	})
	return stream.closeErr
}

func (stream *DeltaStream) finish() {
	stream.done = true
	stream.closeBody()
}

func (stream *DeltaStream) accumulate(delta MessageDelta) {
	switch delta.Kind {
	case KindThinking:
		if delta.Content != "" && !slices.Contains(stream.thinking, delta.Content) {
			stream.thinking = append(stream.thinking, delta.Content)
		}
	case KindText:
		stream.text.WriteString(delta.Content)
	}
	if delta.FinishReason != "" {
		stream.finishReason = delta.FinishReason
	}
}

// Transcript returns what the stream has delivered so far.
func (stream *DeltaStream) Transcript() Transcript {
	return Transcript{
		Thinking:     slices.Clone(stream.thinking),
		Text:         stream.text.String(),
		FinishReason: stream.finishReason,
	}
}
