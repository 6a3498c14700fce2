package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/completeness"
)

var checklistCaseID string

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Score a case's document set for filing readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("checklist"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		result, err := completeness.NewAnalyzer(st).Analyze(ctx, checklistCaseID)
		if err != nil {
			return eris.Wrap(err, "analyze case")
		}

		zap.L().Info("checklist complete",
			zap.String("case", checklistCaseID),
			zap.Int("completeness_pct", result.OverallCompleteness),
			zap.String("readiness", result.FilingReadiness),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	checklistCmd.Flags().StringVar(&checklistCaseID, "case", "", "case id (required)")
	_ = checklistCmd.MarkFlagRequired("case")
	rootCmd.AddCommand(checklistCmd)
}
