package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server so AI assistants can search and
index the document store. Tools: search, index, index_status, storage.

stdout carries JSON-RPC only; logs go to ~/.amandocs/logs/amandocs.log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			svc, err := openService()
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			srv, err := mcp.NewServer(svc, svc.Accountant(), svc.Config())
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			err = srv.Serve(ctx, transport)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport protocol (stdio)")

	return cmd
}
