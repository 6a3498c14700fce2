package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/model"
	"github.com/casebridge/docintel/pkg/pdffill"
)

var (
	fillInput   string
	fillOutput  string
	fillFlatten bool
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Render an autofill result into a filled PDF",
	Long:  "Sends an autofill result to the PDF fill service and writes the returned filled form template to disk.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("fill"); err != nil {
			return err
		}

		raw, err := os.ReadFile(fillInput)
		if err != nil {
			return eris.Wrap(err, "read autofill result")
		}
		var result model.FormAutofillResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return eris.Wrap(err, "parse autofill result")
		}

		fieldData := make(map[string]string, len(result.Fields))
		for _, f := range result.Fields {
			if f.SuggestedValue != "" {
				fieldData[f.FieldID] = f.SuggestedValue
			}
		}
		if len(fieldData) == 0 {
			return eris.New("autofill result carries no filled fields")
		}

		client := pdffill.NewClient(cfg.PDFFill.BaseURL, cfg.PDFFill.ServiceSecret)
		filled, err := client.Fill(ctx, pdffill.FillRequest{
			FormType:  result.FormType,
			FieldData: fieldData,
			Flatten:   fillFlatten,
		})
		if err != nil {
			return eris.Wrap(err, "fill form")
		}

		if err := os.WriteFile(fillOutput, filled.PDF, 0644); err != nil {
			return eris.Wrap(err, "write filled pdf")
		}

		zap.L().Info("form filled",
			zap.String("form", result.FormType),
			zap.String("output", fillOutput),
			zap.Int("filled", filled.Stats.Filled),
			zap.Int("total", filled.Stats.Total),
			zap.Strings("errors", filled.Stats.Errors),
		)
		return nil
	},
}

func init() {
	fillCmd.Flags().StringVar(&fillInput, "input", "", "autofill result JSON file (required)")
	fillCmd.Flags().StringVar(&fillOutput, "output", "filled.pdf", "output PDF path")
	fillCmd.Flags().BoolVar(&fillFlatten, "flatten", false, "flatten fields for a final filing copy")
	_ = fillCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(fillCmd)
}
