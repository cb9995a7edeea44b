package token

import (
	"crypto/rand"
	"strings"
)

const (
	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	// FileTokenLength is the length of file capability tokens.
	FileTokenLength = 16
)

// New returns a random URL-safe token of the given length.
// The charset is fixed so tokens can be validated without a store lookup.
func New(length int) string {
	if length <= 0 {
		length = FileTokenLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; an empty token
		// fails every downstream format check rather than panicking.
		return ""
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = charset[int(b)%len(charset)]
	}
	return string(out)
}

// Valid reports whether s has the exact file-token length and charset.
func Valid(s string) bool {
	if len(s) != FileTokenLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(charset, r) {
			return false
		}
	}
	return true
}

// NumericID returns a random numeric id of the given number of digits,
// without a leading zero. Used for purchase ids.
func NumericID(digits int) string {
	if digits <= 0 {
		digits = 8
	}

	buf := make([]byte, digits)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}

	out := make([]byte, digits)
	for i, b := range buf {
		if i == 0 {
			out[i] = '1' + b%9
			continue
		}
		out[i] = '0' + b%10
	}
	return string(out)
}
