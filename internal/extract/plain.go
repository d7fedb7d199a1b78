package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain decodes content as text: UTF-8 if valid, Latin-1 otherwise,
// UTF-8 with replacement characters as the final fallback. Encoding alone
// never produces an error.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	if s, ok := decodeLatin1(content); ok {
		return s, nil
	}
	return strings.ToValidUTF8(string(content), "�"), nil
}

// decodeLatin1 maps each byte to the corresponding Unicode code point.
// Control bytes outside the usual text range make it bail so that binary
// data falls through to the replacement path.
func decodeLatin1(content []byte) (string, bool) {
	var b strings.Builder
	b.Grow(len(content))
	for _, c := range content {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' {
			return "", false
		}
		b.WriteRune(rune(c))
	}
	return b.String(), true
}
