package plaintext_test

import (
	"math/rand/v2"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaybot/app/util/plaintext"
)

var _ = Describe("Sanitize", func() {
	DescribeTable("strips markdown",
		func(input, expected string) {
			Expect(plaintext.Sanitize(input)).To(Equal(expected))
		},
		Entry("bold", "This is **bold** text", "This is bold text"),
		Entry("italic", "This is *italic* text", "This is italic text"),
		Entry("underscore bold", "This is __bold__ text", "This is bold text"),
		Entry("inline code", "Run `go test` now", "Run go test now"),
		Entry("fenced code", "Example:\n```go\nfmt.Println(1)\n```", "Example:\nfmt.Println(1)"),
		Entry("link", "See [the docs](https://example.com) here", "See the docs (https://example.com) here"),
		Entry("headings", "# Title\n## Subtitle\nBody", "Title\nSubtitle\nBody"),
		Entry("indented heading", "   ### Notes", "Notes"),
		Entry("blank line runs", "one\n\n\n\ntwo\n \n\t\nthree", "one\n\ntwo\n\nthree"),
		Entry("horizontal whitespace", "a    b\t\tc", "a b c"),
		Entry("surrounding whitespace", "\n\n  hello  \n\n", "hello"),
		Entry("mixed", "## Plan\n\n**Step 1:** read [guide](http://x.y)\n\n\n*Step 2:* `ship`",
			"Plan\n\nStep 1: read guide (http://x.y)\n\nStep 2: ship"),
		Entry("plain text untouched", "Nothing to change here.", "Nothing to change here."),
		Entry("empty", "", ""),
	)

	It("re-scans text exposed by earlier rewrites", func() {
		Expect(plaintext.Sanitize("*[label](target)*")).To(Equal("label (target)"))
		Expect(plaintext.Sanitize("[# heading](x)")).To(Equal("heading (x)"))
	})

	DescribeTable("is idempotent",
		func(input string) {
			once := plaintext.Sanitize(input)
			Expect(plaintext.Sanitize(once)).To(Equal(once))
		},
		Entry("nested emphasis", "***very*** important"),
		Entry("unbalanced markers", "2 * 3 ** 4 * 5"),
		Entry("emphasis wrapping link syntax", "*[a]*(b)"),
		Entry("link wrapping heading", "[# x](y)"),
		Entry("stray backticks", "``` `a` ``"),
		Entry("tabs and blank lines", "\t#\t\t**a**\n\n\n\t\n_b_"),
	)

	It("is idempotent on random markdown-ish input", func() {
		alphabet := []string{"*", "**", "_", "__", "`", "```", "#", "[", "]", "(", ")", " ", "\t", "\n", "a", "b", "word"}
		rng := rand.New(rand.NewPCG(1, 2))

		for i := 0; i < 500; i++ {
			var b strings.Builder
			for j := 0; j < rng.IntN(40); j++ {
				b.WriteString(alphabet[rng.IntN(len(alphabet))])
			}

			once := plaintext.Sanitize(b.String())
			Expect(plaintext.Sanitize(once)).To(Equal(once), "input %q", b.String())
		}
	})
})
