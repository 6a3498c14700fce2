package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/casebridge/docintel/internal/analysis"
)

var (
	analyzeBucket   string
	analyzePath     string
	analyzeType     string
	analyzeManifest string
)

// manifestEntry is one document in a batch manifest file.
type manifestEntry struct {
	Bucket       string `json:"bucket"`
	Path         string `json:"path"`
	DocumentType string `json:"document_type,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze stored case documents",
	Long:  "Validates, classifies and extracts structured data from one stored document, or from a batch described by a JSON manifest of id -> {bucket, path, document_type}.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, _, err := initAnalysis()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if analyzeManifest != "" {
			raw, err := os.ReadFile(analyzeManifest)
			if err != nil {
				return eris.Wrap(err, "read manifest")
			}
			var entries map[string]manifestEntry
			if err := json.Unmarshal(raw, &entries); err != nil {
				return eris.Wrap(err, "parse manifest")
			}

			refs := make(map[string]analysis.DocumentRef, len(entries))
			for id, e := range entries {
				refs[id] = analysis.DocumentRef{Bucket: e.Bucket, Path: e.Path, DocumentType: e.DocumentType}
			}

			results := svc.AnalyzeBatch(ctx, refs, func(documentID string, stage analysis.Stage, percent int, message string) {
				zap.L().Info("analysis progress",
					zap.String("document", documentID),
					zap.String("stage", string(stage)),
					zap.Int("percent", percent),
					zap.String("message", message),
				)
			})
			return enc.Encode(results)
		}

		if analyzeBucket == "" || analyzePath == "" {
			return eris.New("either --manifest or both --bucket and --path are required")
		}

		ref := analysis.DocumentRef{Bucket: analyzeBucket, Path: analyzePath, DocumentType: analyzeType}
		result, err := svc.AnalyzeDocument(ctx, ref, func(stage analysis.Stage, percent int, message string) {
			zap.L().Info("analysis progress",
				zap.String("stage", string(stage)),
				zap.Int("percent", percent),
				zap.String("message", message),
			)
		})
		if err != nil {
			return eris.Wrap(err, "analyze document")
		}
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBucket, "bucket", "", "storage bucket holding the document")
	analyzeCmd.Flags().StringVar(&analyzePath, "path", "", "object path within the bucket")
	analyzeCmd.Flags().StringVar(&analyzeType, "type", "", "known document type (skips detection)")
	analyzeCmd.Flags().StringVar(&analyzeManifest, "manifest", "", "JSON manifest of documents to analyze as a batch")
	rootCmd.AddCommand(analyzeCmd)
}
