// Package shingle turns raw text into the set of tokens MinHash operates on.
package shingle

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Type selects both how text is shingled and how each shingle is hashed.
type Type string

const (
	// Word splits text on whitespace.
	Word Type = "w"
	// C4 produces 4-character shingles hashed by reinterpreting their bytes.
	C4 Type = "c4"
	// Char produces 4-character shingles hashed with a general-purpose hash.
	Char Type = "c"
)

// Size is the width of character shingles in runes.
const Size = 4

// IsValid reports whether t is a supported shingle type.
func (t Type) IsValid() bool {
	return t == Word || t == C4 || t == Char
}

// Parse validates a shingle type name.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown shingle type %q (want %q, %q or %q)", s, Word, C4, Char)
	}
	return t, nil
}

// Set is an unordered collection of distinct shingles.
type Set map[string]struct{}

// Extract shingles text according to t. Empty or whitespace-only text yields an empty set.
func Extract(text string, t Type) Set {
	if t == Word {
		return words(text)
	}
	return chars(text, Size)
}

func words(text string) Set {
	fields := strings.Fields(text)
	out := make(Set, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// chars slides a window of size runes over text with whitespace runs collapsed to one space.
// Text shorter than the window becomes a single shingle.
func chars(text string, size int) Set {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return Set{}
	}

	n := utf8.RuneCountInString(normalized)
	if n <= size {
		return Set{normalized: {}}
	}

	// Byte offset of every rune start, plus the end of the string.
	offsets := make([]int, 0, n+1)
	for i := range normalized {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(normalized))

	out := make(Set, n-size+1)
	for i := 0; i+size <= n; i++ {
		out[normalized[offsets[i]:offsets[i+size]]] = struct{}{}
	}
	return out
}
