// Package idcodec encodes node identifiers as short base-63 strings for
// user-facing finding IDs.
//
// Alphabet: A-Z (0-25), a-z (26-51), 0-9 (52-61), _ (62). A uint64 encodes
// to at most 11 characters, typically far fewer, versus 16 for hex.
package idcodec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/revet-dev/revet/internal/graph"
)

const (
	base     = 63
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"
)

var (
	ErrEmptyString = errors.New("empty encoded string")
	ErrInvalidChar = errors.New("invalid character in encoded string")
	ErrOverflow    = errors.New("decoded value overflow")
)

// Encode converts a value to its base-63 form. Zero encodes to "A", the
// minimum non-empty encoding.
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

// Decode converts a base-63 string back to its value.
func Decode(encoded string) (uint64, error) {
	if encoded == "" {
		return 0, ErrEmptyString
	}
	var value uint64
	for _, c := range encoded {
		v, err := charValue(c)
		if err != nil {
			return 0, err
		}
		if value > (^uint64(0))/base {
			return 0, ErrOverflow
		}
		value = value*base + v
	}
	return value, nil
}

// IsValid reports whether a string is a well-formed base-63 encoding.
func IsValid(encoded string) bool {
	if encoded == "" {
		return false
	}
	for _, c := range encoded {
		if _, err := charValue(c); err != nil {
			return false
		}
	}
	return true
}

func charValue(c rune) (uint64, error) {
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

// EncodeNodeID encodes a graph node identifier.
func EncodeNodeID(id graph.NodeID) string {
	return Encode(uint64(id))
}

// DecodeNodeID decodes a base-63 string produced by EncodeNodeID.
func DecodeNodeID(encoded string) (graph.NodeID, error) {
	v, err := Decode(encoded)
	if err != nil {
		return 0, err
	}
	return graph.NodeID(v), nil
}

// FindingID builds a user-facing finding identifier like "IMPACT-9fQ3xA"
// from a category prefix and the node the finding is anchored on.
func FindingID(prefix string, id graph.NodeID) string {
	return prefix + "-" + EncodeNodeID(id)
}

// ParseFindingID splits a finding identifier back into its prefix and node.
func ParseFindingID(findingID string) (prefix string, id graph.NodeID, err error) {
	i := strings.LastIndex(findingID, "-")
	if i <= 0 || i == len(findingID)-1 {
		return "", 0, fmt.Errorf("malformed finding id %q", findingID)
	}
	id, err = DecodeNodeID(findingID[i+1:])
	if err != nil {
		return "", 0, err
	}
	return findingID[:i], id, nil
}
