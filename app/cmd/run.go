package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"relaybot/app/config"
	"relaybot/app/service/supervisor"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errServerExited = errors.New("completion server exited")

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the completion server if needed, then run the bot against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(useLocalServer)
			if err != nil {
				return err
			}
			defer c.close()

			sup, err := do.Invoke[*supervisor.Supervisor](c.di)
			if err != nil {
				return err
			}

			if err = sup.EnsureRunning(c.ctx); err != nil {
				return err
			}

			group, ctx := errgroup.WithContext(c.ctx)

			group.Go(func() error {
				return runBot(ctx, c)
			})

			if sup.Running() {
				group.Go(func() error {
					return watchChild(ctx, sup)
				})
			}

			return group.Wait()
		},
	}
}

// useLocalServer points the bot at the server the supervisor manages.
func useLocalServer(cfg *config.Config) {
	cfg.Completion.Backend = "remote"

	if cfg.Completion.RemoteURL == "" {
		host := cfg.Server.Listen
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		cfg.Completion.RemoteURL = "http://" + host
	}
}

func watchChild(ctx context.Context, sup *supervisor.Supervisor) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !sup.Running() {
				return errServerExited
			}
		}
	}
}
