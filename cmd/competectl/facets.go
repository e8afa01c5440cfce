package main

import (
	"github.com/spf13/cobra"

	"github.com/terra-clan/compete-engine/internal/facet"
)

var facetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "List distinct facet values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		competitions, err := loadCatalog()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), facet.Facets(competitions))
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count competitions per category, difficulty and platform",
	RunE: func(cmd *cobra.Command, _ []string) error {
		competitions, err := loadCatalog()
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), facet.Summarize(competitions))
	},
}

func init() {
	rootCmd.AddCommand(facetsCmd)
	rootCmd.AddCommand(statsCmd)
}
