package cmd

import (
	"relaybot/app/service/api"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the completion HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(nil)
			if err != nil {
				return err
			}
			defer c.close()

			return serve(c)
		},
	}
}

func serve(c *container) error {
	server, err := do.Invoke[*api.Service](c.di)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(c.ctx)

	group.Go(func() error {
		return server.Listen(c.cfg.Server.Listen)
	})

	group.Go(func() error {
		<-ctx.Done()
		return server.Stop()
	})

	return group.Wait()
}
