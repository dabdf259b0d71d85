package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samber/do"

	"relaybot/app/service/api"
	"relaybot/app/service/history"
	"relaybot/app/service/reply"
)

type stubCompletion struct {
	answer string
	err    error
}

func (s *stubCompletion) Complete(context.Context, reply.CompletionRequest) (string, error) {
	return s.answer, s.err
}

var _ = Describe("Service", func() {
	var (
		completion *stubCompletion
		store      *history.Store
		strategy   reply.Strategy
	)

	BeforeEach(func() {
		completion = &stubCompletion{answer: "**Paris** is the capital."}
		store = history.NewStore(5)
		strategy = reply.StrategyAI
	})

	send := func(req *http.Request, out any) int {
		svc := api.NewService(reply.NewResolver(completion, store, reply.Options{Strategy: strategy}), "openai")

		resp, err := svc.App().Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		if out != nil {
			Expect(json.Unmarshal(body, out)).To(Succeed(), string(body))
		}

		return resp.StatusCode
	}

	postJSON := func(path, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	Describe("POST /chat", func() {
		It("answers from the model and records history", func() {
			var resp api.ChatResponse
			code := send(postJSON("/chat", `{"message":"  capital of France?  ","user_id":"u1","room_id":"r1"}`), &resp)

			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Status).To(Equal("success"))
			Expect(resp.UserMessage).To(Equal("capital of France?"))
			Expect(resp.BotResponse).To(Equal("Paris is the capital."))
			Expect(resp.Mode).To(Equal("ai"))
			Expect(resp.Timestamp).NotTo(BeEmpty())
			Expect(store.Len("r1_u1")).To(Equal(1))
		})

		It("uses the quick tier without calling the model", func() {
			completion.err = errors.New("must not be called")

			var resp api.ChatResponse
			code := send(postJSON("/chat", `{"message":"hi"}`), &resp)

			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Mode).To(Equal("quick"))
			Expect(resp.BotResponse).To(Equal("Hi there! How can I help you?"))
			Expect(store.Stats().Exchanges).To(BeZero())
		})

		It("rejects empty messages", func() {
			var resp api.ErrorResponse
			code := send(postJSON("/chat", `{"message":"   "}`), &resp)

			Expect(code).To(Equal(http.StatusBadRequest))
			Expect(resp.Detail).To(Equal("Message cannot be empty"))
		})

		It("reports completion failures as server errors", func() {
			completion.err = syscall.ECONNREFUSED

			var resp api.ErrorResponse
			code := send(postJSON("/chat", `{"message":"tell me about quarterly numbers"}`), &resp)

			Expect(code).To(Equal(http.StatusInternalServerError))
			Expect(resp.Detail).To(HavePrefix("Failed to process message: "))
			Expect(store.Stats().Exchanges).To(BeZero())
		})

		It("answers from the manual table in hybrid mode when the model fails", func() {
			strategy = reply.StrategyHybrid
			completion.err = syscall.ECONNREFUSED

			var resp api.ChatResponse
			code := send(postJSON("/chat", `{"message":"could you please help me with the report"}`), &resp)

			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Mode).To(Equal("manual"))
		})
	})

	It("accepts messages via GET /chat", func() {
		var resp api.ChatResponse
		code := send(httptest.NewRequest(http.MethodGet, "/chat?q=capital+of+France&user_id=u2&room_id=r2", nil), &resp)

		Expect(code).To(Equal(http.StatusOK))
		Expect(resp.UserMessage).To(Equal("capital of France"))
		Expect(store.Len("r2_u2")).To(Equal(1))
	})

	It("returns and clears history per conversation", func() {
		send(postJSON("/chat", `{"message":"first question here","room_id":"r1"}`), nil)
		send(postJSON("/chat", `{"message":"second question here","room_id":"r1"}`), nil)

		var hist api.HistoryResponse
		code := send(httptest.NewRequest(http.MethodGet, "/history/r1", nil), &hist)

		Expect(code).To(Equal(http.StatusOK))
		Expect(hist.UserID).To(Equal("default_user"))
		Expect(hist.TotalConversations).To(Equal(2))
		Expect(hist.History[0].Question).To(Equal("first question here"))
		Expect(hist.History[1].Question).To(Equal("second question here"))

		var cleared api.StatusResponse
		code = send(httptest.NewRequest(http.MethodPost, "/clear/r1", nil), &cleared)

		Expect(code).To(Equal(http.StatusOK))
		Expect(cleared.Message).To(Equal("Conversation history cleared for room r1 and user default_user"))
		Expect(store.Len("r1_default_user")).To(BeZero())

		code = send(httptest.NewRequest(http.MethodPost, "/clear/unknown?user_id=x", nil), &cleared)
		Expect(code).To(Equal(http.StatusOK))
	})

	It("lists modes", func() {
		strategy = reply.StrategyHybrid

		var resp api.ModesResponse
		send(httptest.NewRequest(http.MethodGet, "/modes", nil), &resp)

		Expect(resp.CurrentMode).To(Equal("hybrid"))
		Expect(resp.AvailableModes).To(Equal([]string{"manual", "ai", "hybrid"}))
	})

	DescribeTable("GET /health",
		func(err error, expectedPrefix string) {
			completion.err = err

			var resp api.HealthResponse
			code := send(httptest.NewRequest(http.MethodGet, "/health", nil), &resp)

			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Status).To(Equal("healthy"))
			Expect(resp.AIModel.Status).To(HavePrefix(expectedPrefix))
			Expect(resp.Conversations.MaxStored).To(Equal(5))
		},
		Entry("model reachable", nil, "connected"),
		Entry("model down", syscall.ECONNREFUSED, "disconnected"),
	)

	DescribeTable("POST /manual-response",
		func(message, expected string) {
			var resp api.ChatResponse
			code := send(postJSON("/manual-response", `{"message":"`+message+`"}`), &resp)

			Expect(code).To(Equal(http.StatusOK))
			Expect(resp.Mode).To(Equal("manual"))
			Expect(resp.BotResponse).To(Equal(expected))
		},
		Entry("known key", "Thanks a lot", "You're welcome! I'm always here to help."),
		Entry("miss", "quarterly report", "I understand you're in manual mode. You can ask me about common topics or type 'help' to see what I can assist with."),
	)

	It("is stopped by its owner rather than the injector", func() {
		svc := api.NewService(reply.NewResolver(completion, store, reply.Options{}), "openai")

		_, managed := any(svc).(do.Shutdownable)

		Expect(managed).To(BeFalse())
	})

	It("serves the endpoint index", func() {
		var resp map[string]any
		code := send(httptest.NewRequest(http.MethodGet, "/", nil), &resp)

		Expect(code).To(Equal(http.StatusOK))
		Expect(resp).To(HaveKeyWithValue("status", "success"))
		Expect(resp["endpoints"]).To(HaveKey("POST /chat"))
	})
})
