package message_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"go.abhg.dev/vbr/internal/message"
)

func TestFormatForCommit_wrapsLongParagraph(t *testing.T) {
	subject := "Add feature"
	body := strings.Repeat("word ", 30)
	got := message.FormatForCommit(subject + "\n\n" + body)

	lines := strings.Split(got, "\n")
	assert.Equal(t, subject, lines[0])
	for _, l := range lines[1:] {
		assert.LessOrEqual(t, len(l), 72)
	}
}

func TestFormatForCommit_preservesFencedCode(t *testing.T) {
	msg := "Subject\n\n```\nfunc main() {}\n```"
	got := message.FormatForCommit(msg)
	assert.Contains(t, got, "```\nfunc main() {}\n```")
}

func TestFormatForCommit_bulletList(t *testing.T) {
	msg := "Subject\n\n- " + strings.Repeat("word ", 30)
	got := message.FormatForCommit(msg)
	lines := strings.Split(got, "\n")
	assert.True(t, strings.HasPrefix(lines[1], "- "))
	for _, l := range lines[2:] {
		assert.True(t, strings.HasPrefix(l, "  "))
	}
}

func TestFormatForCommit_quote(t *testing.T) {
	msg := "Subject\n\n> " + strings.Repeat("word ", 30)
	got := message.FormatForCommit(msg)
	for _, l := range strings.Split(got, "\n")[1:] {
		assert.True(t, strings.HasPrefix(l, ">"))
	}
}

func TestParseForUI_unwrapsPlainParagraph(t *testing.T) {
	stored := "Subject\n\nline one\nline two\nline three"
	got := message.ParseForUI(stored)
	assert.Equal(t, "Subject\n\nline one line two line three", got)
}

func TestMessageRoundTrip_property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[a-zA-Z0-9]{1,10}`)
		numWords := rapid.IntRange(1, 15).Draw(t, "numWords")
		words := make([]string, numWords)
		for i := range words {
			words[i] = word.Draw(t, "word")
		}
		subject := strings.Join(words, " ")

		numParas := rapid.IntRange(0, 3).Draw(t, "numParas")
		paras := []string{subject}
		for p := 0; p < numParas; p++ {
			n := rapid.IntRange(1, 20).Draw(t, "paraWords")
			ws := make([]string, n)
			for i := range ws {
				ws[i] = word.Draw(t, "pword")
			}
			paras = append(paras, strings.Join(ws, " "))
		}

		m := strings.Join(paras, "\n\n")
		got := message.ParseForUI(message.FormatForCommit(m))
		assertEqualMessage(t, m, got)
	})
}

func assertEqualMessage(t *rapid.T, want, got string) {
	if want != got {
		t.Fatalf("round-trip mismatch:\nwant: %q\ngot:  %q", want, got)
	}
}
