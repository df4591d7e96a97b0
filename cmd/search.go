package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentic-research/figdex/api"
)

var (
	searchType   string
	searchPageID string
	searchLimit  int
)

var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Full-text search over the indexed document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parts := newManager()
		defer func() { _ = parts.Close() }()

		st, err := parts.SetActiveDocument(docID)
		if err != nil {
			return err
		}

		limit := searchLimit
		if limit <= 0 {
			limit = cfg.SearchLimit
		}
		nodes, err := st.SearchNodes(strings.Join(args, " "), api.SearchFilter{
			Type:   searchType,
			PageID: searchPageID,
		}, limit)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, n := range nodes {
			fmt.Printf("%-12s [%s]  %s\n", n.FigmaID, n.Type, n.Path)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by node type (FRAME, TEXT, INSTANCE, ...)")
	searchCmd.Flags().StringVar(&searchPageID, "page", "", "filter by page id")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (default from config)")
	rootCmd.AddCommand(searchCmd)
}
