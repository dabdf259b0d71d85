package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"relaybot/app/config"
	"relaybot/app/model"
	"relaybot/app/service/history"
	"relaybot/app/service/replycache"
	"relaybot/app/util/plaintext"

	"github.com/samber/do"
)

type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeManual   Mode = "manual"
	ModeAI       Mode = "ai"
	ModeFallback Mode = "fallback"
)

type Strategy string

const (
	StrategyManual Strategy = "manual"
	StrategyAI     Strategy = "ai"
	StrategyHybrid Strategy = "hybrid"
)

var Strategies = []Strategy{StrategyManual, StrategyAI, StrategyHybrid}

const (
	unavailableText = "🚫 AI service is not running. Please start the completion server first."
	timeoutText     = "⏱️ I'm taking too long to respond. Could you try asking in a simpler way?"
	failureFormat   = "I encountered an issue: %s. Please try again."

	pingPrompt = "Hello"
)

// Reply is always displayable. Err is set when Text is a fallback for a failed completion.
type Reply struct {
	Text string
	Mode Mode
	Err  error
}

type Options struct {
	Strategy Strategy
	// Timeout bounds the whole completion call, retries included.
	Timeout          time.Duration
	ContextExchanges int
	ContextChars     int
}

type Resolver struct {
	completion Completion
	history    *history.Store
	opts       Options

	// conversations holds a *sync.Mutex per conversation key so that
	// read-history, complete, append runs exclusively per key.
	// Like the history partitions, entries live for the whole process.
	conversations sync.Map
}

func New(di *do.Injector) (*Resolver, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewResolver(
		do.MustInvoke[Completion](di),
		do.MustInvoke[*history.Store](di),
		Options{
			Strategy:         Strategy(cfg.Reply.Mode),
			Timeout:          cfg.ResolveTimeout(),
			ContextExchanges: cfg.Reply.ContextExchanges,
			ContextChars:     cfg.Reply.ContextChars,
		},
	), nil
}

func NewResolver(completion Completion, store *history.Store, opts Options) *Resolver {
	if opts.Strategy == "" {
		opts.Strategy = StrategyAI
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.ContextExchanges <= 0 {
		opts.ContextExchanges = 2
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = 50
	}

	return &Resolver{
		completion: completion,
		history:    store,
		opts:       opts,
	}
}

func (r *Resolver) Strategy() Strategy {
	return r.opts.Strategy
}

func (r *Resolver) History() *history.Store {
	return r.history
}

// Resolve answers text from the reply cache or the model. History is written
// only after a successful model answer.
func (r *Resolver) Resolve(ctx context.Context, text string, conv model.Conversation) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Mode: ModeFallback, Err: errors.New("message is empty")}
	}

	cached, tier := replycache.Lookup(text, r.opts.Strategy == StrategyManual)
	switch tier {
	case replycache.TierQuick:
		return Reply{Text: cached, Mode: ModeQuick}
	case replycache.TierManual:
		return Reply{Text: cached, Mode: ModeManual}
	}

	key := conv.Key()

	unlock := r.lock(key)
	defer unlock()

	answer, err := r.complete(ctx, CompletionRequest{
		Message: text,
		History: history.Summary(r.history.Recent(key, r.opts.ContextExchanges), r.opts.ContextChars),
		UserID:  conv.UserID,
		RoomID:  conv.RoomID,
	})
	if err != nil {
		slog.Warn("Completion failed",
			"conversation", key,
			"error", err,
		)

		if r.opts.Strategy == StrategyHybrid {
			if manual, ok := replycache.ManualMatch(text); ok {
				return Reply{Text: manual, Mode: ModeManual}
			}
		}

		return Reply{Text: fallbackText(err), Mode: ModeFallback, Err: err}
	}

	r.history.Append(key, model.Exchange{
		Question:  text,
		Answer:    answer,
		Timestamp: time.Now(),
	})

	return Reply{Text: answer, Mode: ModeAI}
}

func (r *Resolver) lock(key string) func() {
	value, _ := r.conversations.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

func (r *Resolver) complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	raw, err := r.completion.Complete(ctx, req)
	if err != nil {
		return "", classify(fmt.Errorf("completion.Complete: %w", err))
	}

	answer := plaintext.Sanitize(raw)
	if answer == "" {
		return "", ErrEmpty
	}

	return answer, nil
}

// Ping sends a trivial prompt to the completion backend without touching history.
func (r *Resolver) Ping(ctx context.Context) error {
	_, err := r.complete(ctx, CompletionRequest{
		Message: pingPrompt,
		History: history.Summary(nil, r.opts.ContextChars),
		UserID:  model.DefaultUserID,
		RoomID:  model.DefaultRoomID,
	})

	return err
}

func fallbackText(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return unavailableText
	case errors.Is(err, ErrTimeout):
		return timeoutText
	default:
		return fmt.Sprintf(failureFormat, err)
	}
}
