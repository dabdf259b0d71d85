package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"relaybot/app/client/webex"
	"relaybot/app/config"
	"relaybot/app/model"
	"relaybot/app/service/decider"
	"relaybot/app/service/reply"
	"relaybot/app/util/mylog"

	"github.com/samber/do"
)

const thinkingText = "🤔 Thinking..."

// ChatService is the part of the chat backend the poll loop needs.
type ChatService interface {
	ListMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error)
	SendMessage(ctx context.Context, roomID, text string) error
}

type Resolver interface {
	Resolve(ctx context.Context, text string, conv model.Conversation) reply.Reply
}

type Options struct {
	PollInterval      time.Duration
	FetchSize         int
	SeedSize          int
	ThinkingNotice    bool
	ThinkingThreshold int
	SeenCapacity      int
}

type Service struct {
	chat        ChatService
	resolver    Resolver
	identity    model.BotIdentity
	eligibility config.Eligibility
	opts        Options
	seen        *SeenSet
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		do.MustInvoke[*webex.Client](di),
		do.MustInvoke[*reply.Resolver](di),
		do.MustInvoke[model.BotIdentity](di),
		cfg.Eligibility(),
		Options{
			PollInterval:      cfg.Bot.PollInterval,
			FetchSize:         cfg.Bot.FetchSize,
			SeedSize:          cfg.Bot.SeedSize,
			ThinkingNotice:    *cfg.Bot.ThinkingNotice,
			ThinkingThreshold: cfg.Bot.ThinkingThreshold,
			SeenCapacity:      cfg.Bot.SeenCapacity,
		},
	), nil
}

func NewService(
	chat ChatService,
	resolver Resolver,
	identity model.BotIdentity,
	eligibility config.Eligibility,
	opts Options,
) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.FetchSize <= 0 {
		opts.FetchSize = 5
	}
	if opts.SeedSize <= 0 {
		opts.SeedSize = 10
	}

	return &Service{
		chat:        chat,
		resolver:    resolver,
		identity:    identity,
		eligibility: eligibility,
		opts:        opts,
		seen:        NewSeenSet(opts.SeenCapacity),
	}
}

func (s *Service) Seen() *SeenSet {
	return s.seen
}

// Run seeds the seen set and then polls roomID until ctx is cancelled or the
// chat backend returns a permanent error.
func (s *Service) Run(ctx context.Context, roomID string) error {
	if err := s.Seed(ctx, roomID); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	slog.Info("Listening for messages",
		"room_id", roomID,
		"mentions_only", s.eligibility.MentionsOnly,
		"keywords", s.eligibility.Keywords,
		mylog.TelegramKey, true,
	)

	for {
		delay := s.opts.PollInterval

		if err := s.runIteration(ctx, roomID); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, model.ErrPermanent) {
				slog.Error("Poll loop stopped", "room_id", roomID, "error", err)
				return err
			}

			slog.Warn("Error running iteration", "error", err)
			delay = max(delay, retryDelay(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// Seed marks the latest messages as seen so nothing posted before startup is answered.
// Transient failures are retried until ctx ends.
func (s *Service) Seed(ctx context.Context, roomID string) error {
	for {
		messages, err := s.chat.ListMessages(ctx, roomID, s.opts.SeedSize)
		if err == nil {
			for _, msg := range messages {
				s.seen.Add(msg.ID)
			}

			slog.Debug("Seeded seen messages", "room_id", roomID, "count", len(messages))

			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, model.ErrPermanent) {
			return fmt.Errorf("seed messages: %w", err)
		}

		slog.Warn("Failed to seed messages", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(max(s.opts.PollInterval, retryDelay(err))):
		}
	}
}

func (s *Service) runIteration(ctx context.Context, roomID string) error {
	messages, err := s.chat.ListMessages(ctx, roomID, s.opts.FetchSize)
	if err != nil {
		return fmt.Errorf("could not list messages: %w", err)
	}

	slices.SortStableFunc(messages, func(a, b model.Message) int {
		return a.Created.Compare(b.Created)
	})

	for _, msg := range messages {
		if ctx.Err() != nil {
			return nil
		}

		if !s.seen.Add(msg.ID) {
			continue
		}

		s.processMessage(ctx, msg)
	}

	return nil
}

func (s *Service) processMessage(ctx context.Context, msg model.Message) {
	decision := decider.Decide(msg, s.identity, s.eligibility)
	if !decision.Respond {
		slog.Debug("Skipping message",
			"id", msg.ID,
			"sender", msg.SenderID,
			"reason", decision.Reason,
		)
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		slog.Debug("Skipping message without text", "id", msg.ID)
		return
	}

	start := time.Now()

	if s.opts.ThinkingNotice && utf8.RuneCountInString(msg.Text) > s.opts.ThinkingThreshold {
		if err := s.chat.SendMessage(ctx, msg.RoomID, thinkingText); err != nil {
			slog.Warn("Failed to send thinking notice", "error", err)
		}
	}

	result := s.resolver.Resolve(ctx, msg.Text, model.NewConversation(msg.RoomID, msg.SenderID))
	if ctx.Err() != nil {
		slog.Info("Abandoned reply on shutdown", "id", msg.ID)
		return
	}

	if result.Text == "" {
		slog.Warn("Resolved an empty reply", "id", msg.ID, "error", result.Err)
		return
	}

	if err := s.chat.SendMessage(ctx, msg.RoomID, result.Text); err != nil {
		slog.Error("Failed to send reply", "id", msg.ID, "error", err)
		return
	}

	slog.Info("Replied to message",
		"sender", msg.SenderID,
		"text", msg.Text,
		"reply", result.Text,
		"mode", result.Mode,
		"reason", decision.Reason,
		"duration", time.Since(start),
		mylog.TelegramKey, true,
	)
}

func retryDelay(err error) time.Duration {
	var delayed interface{ RetryDelay() time.Duration }
	if errors.As(err, &delayed) {
		return delayed.RetryDelay()
	}

	return 0
}
