package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/figdex/api"
	"github.com/agentic-research/figdex/internal/remote"
	"github.com/agentic-research/figdex/internal/syncer"
)

var buildSkipVariables bool

var buildCmd = &cobra.Command{
	Use:   "build [export.json]",
	Short: "Build the index from a document-export JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := remote.NewFileSource(args[0])
		if err != nil {
			return err
		}

		doc, err := source.DocumentInfo(cmd.Context())
		if err != nil {
			return err
		}

		parts := newManager()
		defer func() { _ = parts.Close() }()

		// Partition by the export's own document id unless overridden.
		target := docID
		if target == "" {
			target = doc.ID
		}
		st, err := parts.SetActiveDocument(target)
		if err != nil {
			return err
		}

		start := time.Now()
		fmt.Printf("Indexing %q into %s...\n", doc.Name, st.Path())

		ing := &syncer.Ingestor{Store: st, Client: source}
		stats, err := ing.BuildIndex(context.Background(), api.RebuildOptions{
			SkipVariables: buildSkipVariables,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Done in %v: %d pages, %d nodes, %d components, %d variables.\n",
			time.Since(start).Round(time.Millisecond),
			stats.PagesIndexed, stats.NodesIndexed, stats.ComponentsIndexed, stats.VariablesIndexed)
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildSkipVariables, "skip-variables", false, "skip the design-token phase")
	rootCmd.AddCommand(buildCmd)
}
