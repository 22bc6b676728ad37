// Package idcodec provides the base-63 integer encoding used for compact,
// URL-safe identifiers (e.g. relationship ids). Alphabet: A-Z (0-25),
// a-z (26-51), 0-9 (52-61), _ (62).
package idcodec

import (
	"errors"
	"fmt"
)

const (
	base     = 63
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"
)

var (
	ErrEmptyString = errors.New("idcodec: empty encoded string")
	ErrInvalidChar = errors.New("idcodec: invalid character in encoded string")
)

// Encode encodes value to a base-63 string. Zero encodes as "A".
func Encode(value uint64) string {
	if value == 0 {
		return "A"
	}
	var buf [11]byte
	pos := len(buf)
	for value > 0 {
		pos--
		buf[pos] = alphabet[value%base]
		value /= base
	}
	return string(buf[pos:])
}

// Decode decodes a base-63 string back to its uint64 value.
func Decode(encoded string) (uint64, error) {
	if encoded == "" {
		return 0, ErrEmptyString
	}
	var value uint64
	for _, c := range encoded {
		charVal, err := charToValue(c)
		if err != nil {
			return 0, err
		}
		value = value*base + charVal
	}
	return value, nil
}

func charToValue(c rune) (uint64, error) {
	switch {
	case c >= 'A' && c <= 'Z':
		return uint64(c - 'A'), nil
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 26, nil
	case c >= '0' && c <= '9':
		return uint64(c-'0') + 52, nil
	case c == '_':
		return 62, nil
	default:
		return 0, fmt.Errorf("%w: %c", ErrInvalidChar, c)
	}
}
