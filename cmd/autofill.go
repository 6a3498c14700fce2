package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/autofill"
	"github.com/casebridge/docintel/internal/model"
)

var (
	autofillForm         string
	autofillResults      string
	autofillCitations    string
	autofillExisting     string
	autofillVisaType     string
	autofillRelationship string
)

// autofillOutput bundles the filled form with its derived statistics.
type autofillOutput struct {
	Result *model.FormAutofillResult `json:"result"`
	Stats  model.CompletionStats     `json:"stats"`
	Gaps   []model.DocumentGap       `json:"gaps,omitempty"`
}

var autofillCmd = &cobra.Command{
	Use:   "autofill",
	Short: "Autofill a USCIS form from analyzed documents",
	Long:  "Merges the extracted fields of previously analyzed documents into a target form, flags cross-document conflicts, and reports completion and document gaps.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(autofillResults)
		if err != nil {
			return eris.Wrap(err, "read analysis results")
		}
		var docs []model.DocumentAnalysisResult
		if err := json.Unmarshal(raw, &docs); err != nil {
			return eris.Wrap(err, "parse analysis results")
		}

		var citations []model.Citation
		if autofillCitations != "" {
			raw, err := os.ReadFile(autofillCitations)
			if err != nil {
				return eris.Wrap(err, "read citations")
			}
			if err := json.Unmarshal(raw, &citations); err != nil {
				return eris.Wrap(err, "parse citations")
			}
		}

		in := autofill.Input{VisaType: autofillVisaType, Relationship: autofillRelationship}
		if autofillExisting != "" {
			raw, err := os.ReadFile(autofillExisting)
			if err != nil {
				return eris.Wrap(err, "read existing form values")
			}
			if err := json.Unmarshal(raw, &in.ExistingValues); err != nil {
				return eris.Wrap(err, "parse existing form values")
			}
		}

		engine, err := initAutofill()
		if err != nil {
			return err
		}

		result, err := engine.Autofill(ctx, autofillForm, docs, citations, in)
		if err != nil {
			return eris.Wrap(err, "autofill form")
		}

		stats := engine.Stats(result)
		zap.L().Info("autofill complete",
			zap.String("form", result.FormType),
			zap.Int("fields", len(result.Fields)),
			zap.Int("completion_pct", stats.Percentage),
			zap.Float64("confidence", result.OverallConfidence),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(autofillOutput{
			Result: result,
			Stats:  stats,
			Gaps:   engine.Gaps(result, docs),
		})
	},
}

func init() {
	autofillCmd.Flags().StringVar(&autofillForm, "form", "", "target form type, e.g. I-485 (required)")
	autofillCmd.Flags().StringVar(&autofillResults, "results", "", "JSON file of document analysis results (required)")
	autofillCmd.Flags().StringVar(&autofillCitations, "citations", "", "optional JSON file of source citations")
	autofillCmd.Flags().StringVar(&autofillExisting, "existing", "", "optional JSON file of values already on the form")
	autofillCmd.Flags().StringVar(&autofillVisaType, "visa-type", "", "case visa type, e.g. adjustment_of_status")
	autofillCmd.Flags().StringVar(&autofillRelationship, "relationship", "", "beneficiary relationship, e.g. spouse")
	_ = autofillCmd.MarkFlagRequired("form")
	_ = autofillCmd.MarkFlagRequired("results")
	rootCmd.AddCommand(autofillCmd)
}
