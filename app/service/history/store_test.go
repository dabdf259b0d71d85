package history_test

import (
	"fmt"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"relaybot/app/model"
	"relaybot/app/service/history"
)

func exchange(i int) model.Exchange {
	return model.Exchange{
		Question:  fmt.Sprintf("q%d", i),
		Answer:    fmt.Sprintf("a%d", i),
		Timestamp: time.Unix(int64(i), 0),
	}
}

func questions(exchanges []model.Exchange) []string {
	result := make([]string, 0, len(exchanges))
	for _, e := range exchanges {
		result = append(result, e.Question)
	}
	return result
}

var _ = Describe("Store", func() {
	var store *history.Store

	BeforeEach(func() {
		store = history.NewStore(5)
	})

	It("returns an empty slice for unknown keys", func() {
		Expect(store.Recent("room_user", 2)).To(BeEmpty())
		Expect(store.Len("room_user")).To(Equal(0))
	})

	It("returns the latest exchanges oldest first", func() {
		store.Append("k", exchange(1))
		store.Append("k", exchange(2))
		store.Append("k", exchange(3))

		Expect(questions(store.Recent("k", 2))).To(Equal([]string{"q2", "q3"}))
		Expect(questions(store.Recent("k", 10))).To(Equal([]string{"q1", "q2", "q3"}))
		Expect(store.Recent("k", 0)).To(BeEmpty())
	})

	It("never exceeds the retention bound and drops the oldest first", func() {
		for i := 1; i <= 12; i++ {
			store.Append("k", exchange(i))
			Expect(store.Len("k")).To(BeNumerically("<=", 5))
		}

		Expect(questions(store.All("k"))).To(Equal([]string{"q8", "q9", "q10", "q11", "q12"}))
	})

	It("does not let callers mutate stored exchanges", func() {
		store.Append("k", exchange(1))

		recent := store.Recent("k", 1)
		recent[0].Question = "changed"

		Expect(store.Recent("k", 1)[0].Question).To(Equal("q1"))
	})

	It("keeps partitions independent", func() {
		store.Append("a", exchange(1))
		store.Append("b", exchange(2))

		store.Clear("a")

		Expect(store.Recent("a", 5)).To(BeEmpty())
		Expect(questions(store.Recent("b", 5))).To(Equal([]string{"q2"}))
	})

	It("accepts appends after a clear", func() {
		store.Append("k", exchange(1))
		store.Clear("k")
		store.Append("k", exchange(2))

		Expect(questions(store.All("k"))).To(Equal([]string{"q2"}))
	})

	It("treats clearing an unknown key as a no-op", func() {
		store.Clear("missing")
		Expect(store.Stats().Conversations).To(Equal(0))
	})

	It("aggregates stats across partitions", func() {
		store.Append("a", exchange(1))
		store.Append("a", exchange(2))
		store.Append("b", exchange(3))

		Expect(store.Stats()).To(Equal(history.Stats{Conversations: 2, Exchanges: 3, Retention: 5}))
	})

	It("falls back to the default retention", func() {
		Expect(history.NewStore(0).Retention()).To(Equal(history.DefaultRetention))
	})

	It("is safe for concurrent writers on different keys", func() {
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer GinkgoRecover()
				defer wg.Done()

				key := fmt.Sprintf("room_%d", w)
				for i := 0; i < 50; i++ {
					store.Append(key, exchange(i))
					store.Recent(key, 2)
					store.Stats()
				}
			}(w)
		}
		wg.Wait()

		stats := store.Stats()
		Expect(stats.Conversations).To(Equal(8))
		Expect(stats.Exchanges).To(Equal(40))
	})
})

var _ = Describe("Summary", func() {
	It("describes an empty history as a new conversation", func() {
		Expect(history.Summary(nil, 50)).To(Equal("New conversation"))
	})

	It("truncates each question and answer and joins them", func() {
		long := strings.Repeat("x", 80)
		summary := history.Summary([]model.Exchange{
			{Question: "short question", Answer: long},
			{Question: "second", Answer: "answer"},
		}, 50)

		Expect(summary).To(Equal(
			"Q: short question... | A: " + strings.Repeat("x", 50) + "... | Q: second... | A: answer...",
		))
	})

	It("truncates on character boundaries", func() {
		summary := history.Summary([]model.Exchange{{Question: "ééé", Answer: "b"}}, 2)
		Expect(summary).To(Equal("Q: éé... | A: b..."))
	})
})
