package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/compete-engine/internal/facet"
	"github.com/terra-clan/compete-engine/internal/models"
	"github.com/terra-clan/compete-engine/internal/urgency"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter the catalog",
	Long:  "Applies search, facet selections and quick filters to the catalog and prints the matches with their urgency.",
	RunE:  runFilter,
}

var (
	filterSearch         string
	filterCategory       []string
	filterDifficulty     []string
	filterTimeCommitment []string
	filterQuick          []string
	filterSort           string
	filterAscending      bool
	filterEndingSoonDays int
)

func init() {
	filterCmd.Flags().StringVarP(&filterSearch, "search", "s", "", "Case-insensitive text search")
	filterCmd.Flags().StringSliceVar(&filterCategory, "category", nil, "Categories to include")
	filterCmd.Flags().StringSliceVar(&filterDifficulty, "difficulty", nil, "Difficulties to include")
	filterCmd.Flags().StringSliceVar(&filterTimeCommitment, "time-commitment", nil, "Time commitments to include")
	filterCmd.Flags().StringSliceVarP(&filterQuick, "quick", "q", nil, "Quick filters to apply")
	filterCmd.Flags().StringVar(&filterSort, "sort", "", "Sort key: date, prize, portfolioValue or difficulty")
	filterCmd.Flags().BoolVar(&filterAscending, "asc", false, "Sort ascending")
	filterCmd.Flags().IntVar(&filterEndingSoonDays, "ending-soon-days", facet.DefaultEndingSoonDays, "Window of the endingSoon quick filter")

	rootCmd.AddCommand(filterCmd)
}

type filterRow struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Urgency  *urgency.Result `json:"urgency,omitempty"`
	Error    string          `json:"urgencyError,omitempty"`
}

func runFilter(cmd *cobra.Command, _ []string) error {
	competitions, err := loadCatalog()
	if err != nil {
		return err
	}
	now, err := evaluationTime()
	if err != nil {
		return err
	}

	quick := facet.DefaultRegistry()
	quick.Register(facet.QuickEndingSoon, facet.EndingSoon(filterEndingSoonDays))
	for _, name := range filterQuick {
		if !quick.Has(name) {
			return fmt.Errorf("unknown quick filter %q (available: %v)", name, quick.List())
		}
	}

	spec := models.FilterSpec{
		Search:         filterSearch,
		Category:       filterCategory,
		Difficulty:     filterDifficulty,
		TimeCommitment: filterTimeCommitment,
		QuickFilters:   filterQuick,
	}
	matches := facet.NewEngine(quick).Apply(competitions, spec, now)

	if filterSort != "" {
		key, ok := facet.ParseSortKey(filterSort)
		if !ok {
			return fmt.Errorf("invalid sort key %q", filterSort)
		}
		matches = facet.Sort(matches, key, filterAscending)
	}

	rows := make([]filterRow, 0, len(matches))
	for _, c := range matches {
		row := filterRow{ID: c.ID, Title: c.Title, Category: c.Category}
		if res, err := urgency.Classify(c.StartDate, c.RecruitmentPotential, now); err != nil {
			row.Error = err.Error()
		} else {
			row.Urgency = &res
		}
		rows = append(rows, row)
	}

	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
		"total":        len(rows),
		"competitions": rows,
	})
}
