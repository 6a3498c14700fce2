package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/casebridge/docintel/internal/history"
	"github.com/casebridge/docintel/internal/model"
)

var historyResults string

// historyOutput groups the three derived timelines.
type historyOutput struct {
	Addresses  []model.AddressHistoryEntry    `json:"addresses"`
	Employment []model.EmploymentHistoryEntry `json:"employment"`
	Education  []model.EducationHistoryEntry  `json:"education"`
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Derive address, employment and education timelines",
	Long:  "Builds deduplicated, date-ordered address/employment/education histories from previously analyzed documents, for the biographic sections of USCIS forms.",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(historyResults)
		if err != nil {
			return eris.Wrap(err, "read analysis results")
		}
		var docs []model.DocumentAnalysisResult
		if err := json.Unmarshal(raw, &docs); err != nil {
			return eris.Wrap(err, "parse analysis results")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(historyOutput{
			Addresses:  history.BuildAddressHistory(docs),
			Employment: history.BuildEmploymentHistory(docs),
			Education:  history.BuildEducationHistory(docs),
		})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyResults, "results", "", "JSON file of document analysis results (required)")
	_ = historyCmd.MarkFlagRequired("results")
	rootCmd.AddCommand(historyCmd)
}
