package service

import (
	"regexp"
	"strings"

	"github.com/aspire-solutions/councilkb/internal/domain"
)

var (
	dividerPattern = regexp.MustCompile(`^-{10,}\s*$`)
	headingPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-&/,()':]*$`)
)

// NormalizeDocument canonicalizes line endings and trims trailing whitespace
// per line so the heading scanner sees a stable shape.
func NormalizeDocument(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// ParseHeadingBlocks splits a normalized document into ordered heading blocks.
// A heading is a divider line (>=10 dashes), an ALL-CAPS heading line, and a
// closing divider line; body text accumulates until the next such triple or
// end of input. The bracketing divider lines are consumed, never leaked into
// bodies.
func ParseHeadingBlocks(text string) []domain.HeadingBlock {
	lines := strings.Split(text, "\n")

	var blocks []domain.HeadingBlock
	var current *domain.HeadingBlock
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		blocks = append(blocks, *current)
		current = nil
		body = nil
	}

	i := 0
	for i < len(lines) {
		if heading, ok := headingAt(lines, i); ok {
			flush()
			current = &domain.HeadingBlock{Heading: heading}
			i += 3
			continue
		}

		if current != nil {
			body = append(body, lines[i])
		}
		i++
	}
	flush()

	return blocks
}

// headingAt reports whether a divider/heading/divider triple starts at line i.
func headingAt(lines []string, i int) (string, bool) {
	if i+2 >= len(lines) {
		return "", false
	}
	if !dividerPattern.MatchString(lines[i]) || !dividerPattern.MatchString(lines[i+2]) {
		return "", false
	}
	heading := strings.TrimSpace(lines[i+1])
	if heading == "" || !headingPattern.MatchString(heading) {
		return "", false
	}
	return heading, true
}
