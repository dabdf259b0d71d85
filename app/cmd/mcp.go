package cmd

import (
	"os"

	"relaybot/app/service/mcpserver"

	"github.com/samber/do"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the relay as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(nil)
			if err != nil {
				return err
			}
			defer c.close()

			server, err := do.Invoke[*mcpserver.Service](c.di)
			if err != nil {
				return err
			}

			return server.Serve(c.ctx, os.Stdin, os.Stdout)
		},
	}
}
