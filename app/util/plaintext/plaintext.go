// Package plaintext strips markdown from model output so it reads well in chat clients
// that show raw text.
package plaintext

import (
	"regexp"
	"strings"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Links go first so that emphasis inside labels is still stripped afterwards,
// headings go after emphasis so that unwrapped markers at line starts are caught.
var rules = []rule{
	{regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*\\n?(.*?)```"), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`), "$1 ($2)"},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.+?)__`), "$1"},
	{regexp.MustCompile(`\*(.+?)\*`), "$1"},
	{regexp.MustCompile("`(.+?)`"), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`), ""},
	{regexp.MustCompile(`[ \t]+`), " "},
	{regexp.MustCompile(`\n[ \t]*\n\s*`), "\n\n"},
}

// Sanitize removes emphasis, code and heading markers, rewrites links as
// "label (target)", and collapses whitespace.
//
// A pass can expose new markup (a link label unwrapped from emphasis, a heading
// marker pulled to the line start), so passes repeat until the text is stable.
// Each pass only shortens the text or turns tabs into spaces, so the loop ends,
// and the result is a fixed point: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	for {
		next := pass(text)
		if next == text {
			return next
		}
		text = next
	}
}

func pass(text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}

	return strings.TrimSpace(text)
}
