package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/casebridge/docintel/internal/analysis"
	"github.com/casebridge/docintel/internal/model"
)

var compareCmd = &cobra.Command{
	Use:   "compare <result-a.json> <result-b.json>",
	Short: "Compare two analysis results of the same document type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readAnalysisResult(args[0])
		if err != nil {
			return err
		}
		b, err := readAnalysisResult(args[1])
		if err != nil {
			return err
		}

		result, err := analysis.CompareDocuments(a, b)
		if err != nil {
			return eris.Wrap(err, "compare documents")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func readAnalysisResult(path string) (*model.DocumentAnalysisResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var result model.DocumentAnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	return &result, nil
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
