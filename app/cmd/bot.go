package cmd

import (
	"context"
	"log/slog"

	"relaybot/app/service/engine"
	"relaybot/app/service/reply"
	"relaybot/app/service/rooms"

	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Poll a chat room and answer messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(nil)
			if err != nil {
				return err
			}
			defer c.close()

			return runBot(c.ctx, c)
		},
	}
}

func runBot(ctx context.Context, c *container) error {
	roomSvc, err := do.Invoke[*rooms.Service](c.di)
	if err != nil {
		return err
	}

	identity, err := roomSvc.Identity(ctx)
	if err != nil {
		return err
	}
	do.ProvideValue(c.di, identity)

	room, err := roomSvc.Select(ctx)
	if err != nil {
		return err
	}

	resolver, err := do.Invoke[*reply.Resolver](c.di)
	if err != nil {
		return err
	}
	probeCompletion(ctx, resolver)

	loop, err := do.Invoke[*engine.Service](c.di)
	if err != nil {
		return err
	}

	slog.Info("Bot started",
		"room", room.Title,
		"bot_email", identity.BotEmail,
		"mode", resolver.Strategy(),
	)

	return loop.Run(ctx, room.ID)
}

// probeCompletion only warns: replies fall back to fixed texts while the backend is down.
func probeCompletion(ctx context.Context, resolver *reply.Resolver) {
	if resolver.Strategy() == reply.StrategyManual {
		return
	}

	if err := resolver.Ping(ctx); err != nil {
		slog.Warn("Completion backend is not reachable", "error", err)
		return
	}

	slog.Info("Completion backend is reachable")
}
