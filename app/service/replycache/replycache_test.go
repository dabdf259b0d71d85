package replycache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaybot/app/service/replycache"
)

var _ = Describe("Reply cache", func() {
	Describe("Quick", func() {
		DescribeTable("exact matches ignore case and surrounding whitespace",
			func(input, expected string) {
				reply, ok := replycache.Quick(input)
				Expect(ok).To(BeTrue())
				Expect(reply).To(Equal(expected))
			},
			Entry("hi", "hi", "Hi there! How can I help you?"),
			Entry("upper case", "HELLO", "Hello! What can I do for you?"),
			Entry("padded", "  thank you \n", "Happy to help!"),
			Entry("multi word key", "what can you do", "I can answer questions, help with tasks, and have conversations. What do you need?"),
		)

		It("accepts substring matches for short messages", func() {
			reply, ok := replycache.Quick("hey jarvis")
			Expect(ok).To(BeTrue())
			Expect(reply).To(Equal("Hey! How can I assist?"))
		})

		It("resolves substring ties by table order", func() {
			// "hi" precedes "thanks" in the table.
			reply, ok := replycache.Quick("hi, thanks")
			Expect(ok).To(BeTrue())
			Expect(reply).To(Equal("Hi there! How can I help you?"))
		})

		It("does not use substring matches for long messages", func() {
			_, ok := replycache.Quick("hi there, how is everything?")
			Expect(ok).To(BeFalse())
		})

		It("misses on empty text", func() {
			_, ok := replycache.Quick("   ")
			Expect(ok).To(BeFalse())
		})

		It("counts characters rather than bytes", func() {
			// 19 characters, more than 20 bytes.
			reply, ok := replycache.Quick("привет, bye всем!!!")
			Expect(ok).To(BeTrue())
			Expect(reply).To(Equal("Goodbye! 👋"))
		})
	})

	Describe("Manual", func() {
		It("matches keys anywhere in the message", func() {
			Expect(replycache.Manual("Could you please HELP me with the quarterly report?")).
				To(HavePrefix("I can help you with various tasks"))
		})

		It("falls back to the default phrase", func() {
			Expect(replycache.Manual("quarterly report")).To(Equal(replycache.DefaultManualReply))
		})

		It("reports whether a key matched", func() {
			_, ok := replycache.ManualMatch("quarterly report")
			Expect(ok).To(BeFalse())

			reply, ok := replycache.ManualMatch("bye for now")
			Expect(ok).To(BeTrue())
			Expect(reply).To(Equal("Goodbye! Feel free to reach out anytime you need assistance."))
		})
	})

	Describe("Lookup", func() {
		It("prefers the quick tier", func() {
			reply, tier := replycache.Lookup("hello", true)
			Expect(tier).To(Equal(replycache.TierQuick))
			Expect(reply).To(Equal("Hello! What can I do for you?"))
		})

		It("uses the manual table only in manual mode", func() {
			reply, tier := replycache.Lookup("tell me about the roadmap for next year", true)
			Expect(tier).To(Equal(replycache.TierManual))
			Expect(reply).To(Equal(replycache.DefaultManualReply))
		})

		It("returns no tier when the model has to answer", func() {
			reply, tier := replycache.Lookup("tell me about the roadmap for next year", false)
			Expect(tier).To(Equal(replycache.TierNone))
			Expect(reply).To(BeEmpty())
		})
	})
})
