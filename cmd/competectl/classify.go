package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terra-clan/compete-engine/internal/urgency"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [start-date...]",
	Short: "Classify deadlines by urgency",
	Long:  "Prints the urgency tier, days remaining and label for each start date given, or for catalog records selected with --id.",
	RunE:  runClassify,
}

var (
	classifyIDs         []string
	classifyRecruitment bool
)

func init() {
	classifyCmd.Flags().StringSliceVar(&classifyIDs, "id", nil, "Catalog competition ids to classify")
	classifyCmd.Flags().BoolVar(&classifyRecruitment, "recruitment", false, "Treat the given dates as recruitment competitions")

	rootCmd.AddCommand(classifyCmd)
}

type classifyRow struct {
	Input  string          `json:"input"`
	Result *urgency.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(classifyIDs) == 0 {
		return fmt.Errorf("provide at least one start date or --id")
	}

	now, err := evaluationTime()
	if err != nil {
		return err
	}

	rows := make([]classifyRow, 0, len(args)+len(classifyIDs))
	for _, raw := range args {
		rows = append(rows, classifyRow{Input: raw}.with(urgency.ClassifyString(raw, classifyRecruitment, now)))
	}

	if len(classifyIDs) > 0 {
		competitions, err := loadCatalog()
		if err != nil {
			return err
		}
		byID := make(map[string]int, len(competitions))
		for i, c := range competitions {
			byID[c.ID] = i
		}

		for _, id := range classifyIDs {
			i, ok := byID[id]
			if !ok {
				rows = append(rows, classifyRow{Input: id, Error: "competition not found"})
				continue
			}
			c := competitions[i]
			rows = append(rows, classifyRow{Input: id}.with(urgency.Classify(c.StartDate, c.RecruitmentPotential, now)))
		}
	}

	return writeJSON(cmd.OutOrStdout(), rows)
}

func (r classifyRow) with(res urgency.Result, err error) classifyRow {
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Result = &res
	return r
}
