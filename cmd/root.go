package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/figdex/internal/config"
	"github.com/agentic-research/figdex/internal/store"
)

var (
	cacheDir string
	docID    string

	// cfg is resolved by PersistentPreRunE and used by all subcommands.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "figdex",
	Short: "figdex: a local index/cache engine for design-tool documents",
	Long: `figdex mirrors a remote design-tool document (nodes, components,
pages, design-token variables) into a per-document SQLite index with
full-text search and change-aware invalidation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cacheDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cacheDir, "cache-dir", "c", "", "cache directory (default ~/.figdex)")
	rootCmd.PersistentFlags().StringVarP(&docID, "document", "d", "", "remote document id")
}

// newManager builds the partition manager from resolved config.
func newManager() *store.Manager {
	return store.NewManager(cfg.CacheDir, cfg.DBPrefix)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
