package ident

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const acePrefix = "xn--"

// EncodeName turns a display name into the slug half of an event id.
//
// The name is trimmed, lowercased and punycode encoded, then every rune that
// is not an ASCII letter, digit or space is dropped and whitespace runs become
// single hyphens. The result contains only [a-z0-9-] and never has leading,
// trailing or doubled hyphens. It may be empty; see IsDegenerate.
func EncodeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(lowered))
	for _, label := range strings.Split(lowered, ".") {
		for _, r := range asciiLabel(label) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
				b.WriteRune(r)
			}
		}
	}

	return strings.Join(strings.Fields(b.String()), "-")
}

// asciiLabel punycode encodes a label holding non-ASCII runes. ASCII labels,
// including ones that merely look like "xn--" labels, pass through untouched.
// A label idna rejects also passes through so its ASCII runes survive.
func asciiLabel(label string) string {
	if isASCII(label) {
		return label
	}
	encoded, err := idna.Punycode.ToASCII(label)
	if err != nil {
		return label
	}
	return strings.TrimPrefix(encoded, acePrefix)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// IsDegenerate reports whether slug has no letters or digits
func IsDegenerate(slug string) bool {
	return strings.Trim(slug, "-") == ""
}
