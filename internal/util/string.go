// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
)

// UNICODE: all helpers count runes, never bytes, so CJK text is never cut
// in the middle of a character.

// TruncateRunes truncates s to maxRunes runes, appending "..." when cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// Excerpt returns the first n runes of s with no ellipsis. Line breaks are
// folded to spaces so the result fits on one display line.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	for i, r := range runes {
		if r == '\n' || r == '\r' || r == '\t' {
			runes[i] = ' '
		}
	}
	return string(runes)
}

// EscapeKey maps a session id onto a file name component, one to one.
// Lowercase ASCII letters, digits, '-' and '_' pass through; every other
// byte becomes %XX with uppercase hex. The output never contains a path
// separator or starts with a dot, and two ids that differ only in case
// never share a name on a case-insensitive filesystem. The empty id
// escapes to "%".
func EscapeKey(key string) string {
	if key == "" {
		return "%"
	}
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if keepKeyByte(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

// UnescapeKey reverses EscapeKey. It reports false for names EscapeKey
// could not have produced.
func UnescapeKey(name string) (string, bool) {
	if name == "%" {
		return "", true
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if keepKeyByte(c) {
			b.WriteByte(c)
			continue
		}
		if c != '%' || i+2 >= len(name) {
			return "", false
		}
		hi, ok1 := upperHex(name[i+1])
		lo, ok2 := upperHex(name[i+2])
		if !ok1 || !ok2 || keepKeyByte(hi<<4|lo) {
			return "", false
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), true
}

func keepKeyByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func upperHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
