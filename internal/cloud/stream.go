// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxChunkSize is the initial read buffer for SSE lines (64KB). Longer lines
// are still read in full.
const MaxChunkSize = 64 * 1024

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// errMalformedFrame marks a data line whose payload is not a chunk record.
var errMalformedFrame = errors.New("malformed frame")

// =============================================================================
// FRAME PARSING
// =============================================================================

// frame is one streamed chat-completion chunk.
type frame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// content returns the first choice's delta text.
func (f frame) content() string {
	if len(f.Choices) > 0 {
		return f.Choices[0].Delta.Content
	}
	return ""
}

// parseFrame decodes a data payload. A failure means the line is skipped.
func parseFrame(payload string) (frame, error) {
	var f frame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		return frame{}, fmt.Errorf("%w: %w", errMalformedFrame, err)
	}
	return f, nil
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder reads an event-stream body line by line and yields the text
// fragments it carries. A Decoder consumes its reader once and is not
// restartable.
type Decoder struct {
	r       *bufio.Reader
	done    bool
	err     error
	skipped int
}

// NewDecoder creates a decoder over an event-stream body.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, MaxChunkSize)}
}

// Next returns the next non-empty fragment. It returns io.EOF at the end of
// the body or at the [DONE] sentinel. Read failures are returned wrapped in
// ErrTransport; after any error Next keeps returning it.
//
// Lines that do not start with "data:" are ignored. Data lines that fail to
// parse are skipped and counted, see Skipped.
func (d *Decoder) Next() (string, error) {
	for !d.done {
		line, readErr := d.r.ReadString('\n')

		fragment, stop, err := d.handleLine(line)
		switch {
		case err != nil:
			d.finish(err)
		case stop:
			d.finish(io.EOF)
		case readErr != nil:
			d.finish(readFailure(readErr))
		}

		if fragment != "" && err == nil && !stop {
			return fragment, nil
		}
	}
	return "", d.err
}

// Skipped returns how many malformed data lines were dropped.
func (d *Decoder) Skipped() int {
	return d.skipped
}

// All returns the remaining fragments as a sequence. A non-EOF error is
// yielded once as the final element.
func (d *Decoder) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			fragment, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

// Fragments decodes r as a lazy sequence of text fragments.
func Fragments(r io.Reader) iter.Seq2[string, error] {
	return NewDecoder(r).All()
}

// handleLine processes one raw line. stop reports the [DONE] sentinel; err
// reports an error frame sent by the API in place of a chunk.
func (d *Decoder) handleLine(line string) (fragment string, stop bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return "", false, nil
	}
	payload = strings.TrimSpace(payload)

	switch payload {
	case "":
		return "", false, nil
	case doneSentinel:
		return "", true, nil
	}

	f, perr := parseFrame(payload)
	if perr != nil {
		d.skipped++
		return "", false, nil
	}
	if f.Error != nil && f.Error.Message != "" {
		return "", false, fmt.Errorf("%w: %s", ErrTransport, f.Error.Message)
	}
	return f.content(), false, nil
}

func (d *Decoder) finish(err error) {
	d.done = true
	d.err = err
}

// readFailure keeps io.EOF as the clean end and wraps everything else.
func readFailure(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
