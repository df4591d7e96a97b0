package cmd

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentic-research/figdex/internal/mcptool"
	"github.com/agentic-research/figdex/internal/remote"
	"github.com/agentic-research/figdex/internal/syncer"
)

var serveExport string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over MCP (stdio)",
	Long: `Starts an MCP server exposing the cache engine's operations:
ensure_ready, search, node/component/variable lookups, stats, rebuild,
and partition switching. With --export, a document-export JSON file acts
as the remote source; without it the server starts disconnected and
serves whatever is already cached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var client remote.Client
		if serveExport != "" {
			fs, err := remote.NewFileSource(serveExport)
			if err != nil {
				return err
			}
			client = fs
		} else {
			// Disconnected source: cached data still serves, with a
			// staleness warning.
			offline := remote.NewMemSource()
			offline.SetConnected(false)
			client = offline
		}

		parts := newManager()
		defer func() { _ = parts.Close() }()
		if docID != "" {
			if _, err := parts.SetActiveDocument(docID); err != nil {
				return err
			}
		}

		ctrl := syncer.NewController(parts, client, syncer.Config{
			StalenessWindow:         cfg.StalenessWindow,
			RetryInterval:           cfg.RetryInterval,
			PropertyChangeThreshold: cfg.PropertyChangeThreshold,
		})

		s := server.NewMCPServer("figdex", version)
		mcptool.Register(s, ctrl)

		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveExport, "export", "", "document-export JSON to use as the remote source")
	rootCmd.AddCommand(serveCmd)
}
