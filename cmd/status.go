package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics for the active document",
	RunE: func(cmd *cobra.Command, args []string) error {
		parts := newManager()
		defer func() { _ = parts.Close() }()

		st, err := parts.SetActiveDocument(docID)
		if err != nil {
			return err
		}
		stats, err := st.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Document:    %s\n", orDash(stats.DocumentName))
		fmt.Printf("Pages:       %d\n", stats.Pages)
		fmt.Printf("Nodes:       %d\n", stats.Nodes)
		fmt.Printf("Components:  %d\n", stats.Components)
		fmt.Printf("Variables:   %d (%d collections, %d bindings)\n",
			stats.Variables, stats.Collections, stats.Bindings)
		if stats.LastFullSync.IsZero() || stats.LastFullSync.Unix() == 0 {
			fmt.Println("Last sync:   never")
		} else {
			fmt.Printf("Last sync:   %s\n", stats.LastFullSync.Format("2006-01-02 15:04:05"))
		}
		if stats.Invalidated {
			fmt.Printf("Invalidated: %s\n", stats.InvalidationReason)
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List cached document partitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		parts := newManager()
		files, err := parts.List()
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No cached documents.")
			return nil
		}
		for _, f := range files {
			id := f.DocumentID
			if id == "" {
				id = "(default)"
			}
			fmt.Printf("%-24s %10d bytes  %s\n", id, f.Size, f.ModTime.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(docsCmd)
}
