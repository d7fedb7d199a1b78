package extract

import (
	"regexp"
	"strings"
)

// Markdown stripping is a lossy, best-effort textual projection, not a
// full Markdown AST walk. Line structure is preserved.
var (
	mdHeader = regexp.MustCompile(`^#{1,6}\s*`)
	mdLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdBold   = regexp.MustCompile(`(\*\*|__)(.*?)(\*\*|__)`)
	mdItalic = regexp.MustCompile(`(\*|_)([^*_]+)(\*|_)`)
	mdCode   = regexp.MustCompile("`([^`]*)`")
)

func extractMarkdown(content []byte) (string, error) {
	text, err := extractPlain(content)
	if err != nil {
		return "", err
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = mdHeader.ReplaceAllString(line, "")
		line = mdLink.ReplaceAllString(line, "$1")
		line = mdBold.ReplaceAllString(line, "$2")
		line = mdItalic.ReplaceAllString(line, "$2")
		line = mdCode.ReplaceAllString(line, "$1")
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}
