// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains a sequence into fragments and the terminal error.
func collect(t *testing.T, body string) ([]string, error) {
	t.Helper()
	var out []string
	for fragment, err := range Fragments(strings.NewReader(body)) {
		if err != nil {
			return out, err
		}
		out = append(out, fragment)
	}
	return out, nil
}

func chunk(content string) string {
	return `data: {"choices":[{"delta":{"content":"` + content + `"}}]}`
}

func TestFragments_SingleChunkAndDone(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n" + "data: [DONE]\n"

	got, err := collect(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi"}, got)
}

func TestFragments_SkipsMalformed(t *testing.T) {
	body := strings.Join([]string{
		chunk("A"),
		"data: not-json",
		chunk("B"),
		"data: {\"choices\":",
		chunk("C"),
		"data: [DONE]",
	}, "\n\n")

	d := NewDecoder(strings.NewReader(body))
	var got []string
	for fragment, err := range d.All() {
		require.NoError(t, err)
		got = append(got, fragment)
	}

	assert.Equal(t, []string{"A", "B", "C"}, got)
	assert.Equal(t, 2, d.Skipped())
}

func TestFragments_IgnoresNonDataLines(t *testing.T) {
	body := strings.Join([]string{
		": keep-alive",
		"event: message",
		"id: 7",
		"",
		chunk("x"),
		"retry: 10",
	}, "\n")

	got, err := collect(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}

func TestFragments_EmptyDeltaEmitsNothing(t *testing.T) {
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":""}}]}`,
		`data: {"choices":[]}`,
		`data: {"id":"meta"}`,
		chunk("ok"),
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
	}, "\n")

	got, err := collect(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
}

func TestFragments_StopsAtDone(t *testing.T) {
	body := chunk("1") + "\ndata: [DONE]\n" + chunk("never") + "\n"

	got, err := collect(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got)
}

func TestFragments_EmptyBody(t *testing.T) {
	got, err := collect(t, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFragments_CRLFAndNoTrailingNewline(t *testing.T) {
	body := chunk("a") + "\r\n\r\n" + chunk("b")

	got, err := collect(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFragments_UnicodeContent(t *testing.T) {
	body := chunk("你好") + "\n" + chunk("世界") + "\n"

	got, err := collect(t, body)
	require.NoError(t, err)
	assert.Equal(t, "你好世界", strings.Join(got, ""))
}

// failingReader returns its data and then a non-EOF error.
type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDecoder_TransportFailure(t *testing.T) {
	boom := errors.New("connection reset by peer")
	d := NewDecoder(&failingReader{data: chunk("A") + "\n", err: boom})

	fragment, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "A", fragment)

	_, err = d.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, boom)

	// The terminal error is sticky
	_, again := d.Next()
	assert.Equal(t, err, again)
}

func TestDecoder_ErrorFrame(t *testing.T) {
	body := chunk("A") + "\n" + `data: {"error":{"message":"upstream overloaded"}}` + "\n" + chunk("B")

	got, err := collect(t, body)
	assert.Equal(t, []string{"A"}, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "upstream overloaded")
}

func TestDecoder_EOFIsSticky(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: [DONE]\n"))
	for i := 0; i < 3; i++ {
		if _, err := d.Next(); err != io.EOF {
			t.Fatalf("Next() #%d error = %v, want io.EOF", i, err)
		}
	}
}

func TestDecoder_LongLine(t *testing.T) {
	long := strings.Repeat("z", MaxChunkSize*2)
	got, err := collect(t, chunk(long)+"\n"+"data: [DONE]\n")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0], len(long))
}

func TestFragments_BreakEarly(t *testing.T) {
	body := chunk("1") + "\n" + chunk("2") + "\n" + chunk("3") + "\n"
	var got []string
	for fragment, err := range Fragments(strings.NewReader(body)) {
		require.NoError(t, err)
		got = append(got, fragment)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, got)
}
