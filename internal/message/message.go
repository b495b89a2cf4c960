// Package message implements the commit-message formatter: a pair of pure,
// round-trip invertible functions between the free-form message a user
// types in the UI and the 72-column-wrapped form stored in a commit.
package message

import (
	"strings"
)

const wrapColumn = 72

// FormatForCommit converts a user-authored message into the form stored
// in a commit: the first paragraph (the subject) is kept verbatim; each
// subsequent paragraph is wrapped according to its kind (fenced code
// block, bullet list, quote, or plain prose).
func FormatForCommit(userMessage string) string {
	paragraphs := splitParagraphs(userMessage)
	if len(paragraphs) == 0 {
		return ""
	}

	out := make([]string, len(paragraphs))
	out[0] = strings.TrimRight(paragraphs[0], " \t")
	for i := 1; i < len(paragraphs); i++ {
		out[i] = formatParagraph(paragraphs[i])
	}

	return strings.Join(out, "\n\n")
}

// ParseForUI converts a stored commit message back into the free-form
// form a UI should present for editing: soft-wrapped paragraphs are
// unwrapped into single lines, while bullets, quotes, code blocks, and
// trailer lines are preserved structurally.
func ParseForUI(storedMessage string) string {
	paragraphs := splitParagraphs(storedMessage)
	if len(paragraphs) == 0 {
		return ""
	}

	out := make([]string, len(paragraphs))
	out[0] = strings.TrimRight(paragraphs[0], " \t")
	for i := 1; i < len(paragraphs); i++ {
		out[i] = unwrapParagraph(paragraphs[i])
	}

	return strings.Join(out, "\n\n")
}

// splitParagraphs splits s on blank lines, preserving the internal line
// structure of each paragraph.
func splitParagraphs(s string) []string {
	lines := strings.Split(s, "\n")

	var paragraphs []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paragraphs = append(paragraphs, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()

	return paragraphs
}

func isFenced(p string) bool {
	return strings.HasPrefix(strings.TrimSpace(firstLine(p)), "```")
}

func isBullet(p string) (marker string, rest string, ok bool) {
	trimmed := strings.TrimLeft(p, " ")
	if len(trimmed) == 0 {
		return "", "", false
	}
	switch trimmed[0] {
	case '*', '-', '+':
		indent := p[:len(p)-len(trimmed)]
		return indent + string(trimmed[0]) + " ", strings.TrimPrefix(trimmed[1:], " "), true
	default:
		return "", "", false
	}
}

func isQuote(p string) bool {
	return strings.HasPrefix(strings.TrimLeft(p, " "), ">")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// trailerKeyByte reports whether b is valid inside an RFC-822-style
// trailer key: printable ASCII excluding ':'.
func trailerKeyByte(b byte) bool {
	return b >= '!' && b <= '~' && b != ':'
}

// isTrailerLine reports whether line looks like "Key: Value".
func isTrailerLine(line string) bool {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return false
	}
	for i := 0; i < idx; i++ {
		if !trailerKeyByte(line[i]) {
			return false
		}
	}
	return idx+1 < len(line) && line[idx+1] == ' '
}

func formatParagraph(p string) string {
	if isFenced(p) {
		return p
	}

	if len(strings.Split(p, "\n")) == 1 && isTrailerLine(p) {
		return p
	}

	if marker, rest, ok := isBullet(p); ok {
		return wrapBullet(marker, joinSoftLines(rest+"\n"+restLines(p)))
	}

	if isQuote(p) {
		return wrapQuote(joinSoftLines(stripQuotePrefix(p)))
	}

	return wrapPlain(joinSoftLines(p))
}

func unwrapParagraph(p string) string {
	if isFenced(p) {
		return p
	}

	lines := strings.Split(p, "\n")
	if len(lines) == 1 && isTrailerLine(lines[0]) {
		return p
	}

	if marker, _, ok := isBullet(p); ok {
		indent := strings.Repeat(" ", len(marker))
		var sb strings.Builder
		for i, line := range lines {
			trimmed := strings.TrimPrefix(line, marker)
			trimmed = strings.TrimPrefix(trimmed, indent)
			if i > 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(marker)
			}
			sb.WriteString(strings.TrimSpace(trimmed))
		}
		return sb.String()
	}

	if isQuote(p) {
		var sb strings.Builder
		for i, line := range lines {
			unq := strings.TrimPrefix(strings.TrimLeft(line, " "), ">")
			unq = strings.TrimPrefix(unq, " ")
			if i > 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteString("> ")
			}
			sb.WriteString(strings.TrimSpace(unq))
		}
		return sb.String()
	}

	return strings.Join(unwrapWords(lines), " ")
}

func restLines(p string) string {
	_, rest, ok := strings.Cut(p, "\n")
	if !ok {
		return ""
	}
	return rest
}

func stripQuotePrefix(p string) string {
	lines := strings.Split(p, "\n")
	for i, line := range lines {
		trimmed := strings.TrimPrefix(strings.TrimLeft(line, " "), ">")
		lines[i] = strings.TrimPrefix(trimmed, " ")
	}
	return strings.Join(lines, "\n")
}

// joinSoftLines joins a paragraph's physical lines into one logical line
// of words, the inverse of hard-wrapping.
func joinSoftLines(p string) string {
	return strings.Join(unwrapWords(strings.Split(p, "\n")), " ")
}

func unwrapWords(lines []string) []string {
	var words []string
	for _, line := range lines {
		words = append(words, strings.Fields(line)...)
	}
	return words
}

func wrapPlain(text string) string {
	return strings.Join(wrapWords(strings.Fields(text), wrapColumn, ""), "\n")
}

func wrapQuote(text string) string {
	lines := wrapWords(strings.Fields(text), wrapColumn-2, "")
	for i, l := range lines {
		if l == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + l
		}
	}
	return strings.Join(lines, "\n")
}

func wrapBullet(marker, text string) string {
	indent := strings.Repeat(" ", len(marker))
	lines := wrapWords(strings.Fields(text), wrapColumn-len(marker), indent)
	if len(lines) == 0 {
		return strings.TrimRight(marker, " ")
	}
	lines[0] = marker + strings.TrimPrefix(lines[0], indent)
	return strings.Join(lines, "\n")
}

// wrapWords greedily packs words into lines no wider than width,
// prefixing continuation lines (all but the first) with indent.
func wrapWords(words []string, width int, indent string) []string {
	if len(words) == 0 {
		return nil
	}

	var lines []string
	cur := ""     // current line, including any indent already written
	empty := true // cur has no words yet

	flush := func() {
		lines = append(lines, cur)
		cur = ""
		empty = true
	}

	for _, w := range words {
		var candidate string
		if empty {
			prefix := ""
			if len(lines) > 0 {
				prefix = indent
			}
			candidate = prefix + w
		} else {
			candidate = cur + " " + w
		}

		if !empty && len(candidate) > width {
			flush()
			prefix := indent
			if len(lines) == 0 {
				prefix = ""
			}
			candidate = prefix + w
		}

		cur = candidate
		empty = false
	}
	flush()

	return lines
}
