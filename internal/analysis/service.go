// Package analysis orchestrates the per-document pipeline: resolve a signed
// URL, fetch the binary, then validate, detect type and extract fields
// through the provider router. Batches run with bounded concurrency and
// per-document failure isolation.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/casebridge/docintel/internal/fetch"
	"github.com/casebridge/docintel/internal/model"
	"github.com/casebridge/docintel/internal/provider"
	"github.com/casebridge/docintel/pkg/blobstore"
)

// Stage identifies a step of the analysis pipeline.
type Stage string

const (
	StageValidating    Stage = "validating"
	StageDetectingType Stage = "detecting_type"
	StageExtracting    Stage = "extracting"
	StageComplete      Stage = "complete"
)

// ProgressFunc receives pipeline progress. Implementations must be fast; the
// service calls them inline.
type ProgressFunc func(stage Stage, percent int, message string)

// BatchProgressFunc receives per-document progress during batch analysis.
type BatchProgressFunc func(documentID string, stage Stage, percent int, message string)

// DocumentRef locates a stored document to analyze.
type DocumentRef struct {
	Bucket string
	Path   string
	// DocumentType, when set, skips detection and extracts as this type.
	DocumentType string
}

// Fetcher is the slice of the binary fetcher the service uses.
type Fetcher interface {
	Fetch(ctx context.Context, signedURL string) (*fetch.Payload, error)
}

// Options tunes the service.
type Options struct {
	// ChunkSize bounds how many documents of a batch run concurrently.
	ChunkSize int
}

// Service runs document analysis. All collaborators are injected; the
// service holds no global state.
type Service struct {
	signer    blobstore.Signer
	fetcher   Fetcher
	provider  provider.DocumentProvider
	chunkSize int
}

// NewService wires an analysis service.
func NewService(signer blobstore.Signer, fetcher Fetcher, p provider.DocumentProvider, opts Options) *Service {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 3
	}
	return &Service{
		signer:    signer,
		fetcher:   fetcher,
		provider:  p,
		chunkSize: opts.ChunkSize,
	}
}

// AnalyzeDocument runs the full pipeline for one document. A document that
// fails validation yields a result with type "invalid" and zero confidence,
// not an error; detection and extraction are never invoked for it. Errors
// are reserved for infrastructure failures (signing, fetching, providers).
func (s *Service) AnalyzeDocument(ctx context.Context, ref DocumentRef, progress ProgressFunc) (*model.DocumentAnalysisResult, error) {
	if progress == nil {
		progress = func(Stage, int, string) {}
	}
	start := time.Now()

	progress(StageValidating, 10, "fetching and validating document")

	signedURL, err := s.signer.SignedURL(ctx, ref.Bucket, ref.Path, blobstore.ProcessingTTL)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: sign %s/%s", ref.Bucket, ref.Path)
	}
	payload, err := s.fetcher.Fetch(ctx, signedURL)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: fetch %s/%s", ref.Bucket, ref.Path)
	}
	doc := provider.Document{Base64: payload.Base64, MediaType: payload.MediaType}

	validation, err := s.provider.Validate(ctx, doc)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: validate")
	}
	if !validation.Valid {
		reason := validation.Reason
		if reason == "" {
			reason = "document failed validation"
		}
		zap.L().Info("document rejected by validation",
			zap.String("bucket", ref.Bucket),
			zap.String("path", ref.Path),
			zap.String("reason", reason),
		)
		progress(StageComplete, 100, "document is not usable")
		return &model.DocumentAnalysisResult{
			DocumentType:     model.DocTypeInvalid,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			Errors:           []string{reason},
		}, nil
	}

	documentType := ref.DocumentType
	var warnings []string
	if documentType == "" {
		progress(StageDetectingType, 30, "detecting document type")
		detection, err := s.provider.DetectType(ctx, doc)
		if err != nil {
			return nil, eris.Wrap(err, "analysis: detect type")
		}
		documentType = detection.DocumentType
		if detection.Confidence < 0.5 && documentType != model.DocTypeUnknown {
			warnings = append(warnings, fmt.Sprintf(
				"document type %q detected with low confidence %.2f", documentType, detection.Confidence))
		}
	}

	progress(StageExtracting, 60, "extracting fields")
	extraction, err := s.provider.AnalyzeDocument(ctx, doc, documentType)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: extract")
	}

	result := &model.DocumentAnalysisResult{
		DocumentType:      extraction.DocumentType,
		ExtractedFields:   tagSource(extraction.Fields, extraction.DocumentType),
		OverallConfidence: extraction.OverallConfidence,
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
		RawText:           extraction.RawText,
		Warnings:          append(warnings, extraction.Warnings...),
	}
	if result.DocumentType == "" {
		result.DocumentType = documentType
	}

	progress(StageComplete, 100, "analysis complete")
	zap.L().Info("document analyzed",
		zap.String("document_type", result.DocumentType),
		zap.Int("fields", len(result.ExtractedFields)),
		zap.Float64("confidence", result.OverallConfidence),
		zap.Int64("ms", result.ProcessingTimeMs),
	)
	return result, nil
}

// AnalyzeBatch analyzes every referenced document and returns a result per
// input key, always. A document whose analysis fails gets a result with type
// "error" and the failure message; other documents are unaffected. Documents
// run in chunks so no more than ChunkSize are in flight at once.
func (s *Service) AnalyzeBatch(ctx context.Context, refs map[string]DocumentRef, progress BatchProgressFunc) map[string]*model.DocumentAnalysisResult {
	results := make(map[string]*model.DocumentAnalysisResult, len(refs))
	if len(refs) == 0 {
		return results
	}

	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mu sync.Mutex
	for chunkStart := 0; chunkStart < len(ids); chunkStart += s.chunkSize {
		chunk := ids[chunkStart:min(chunkStart+s.chunkSize, len(ids))]

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range chunk {
			g.Go(func() error {
				var docProgress ProgressFunc
				if progress != nil {
					docProgress = func(stage Stage, percent int, message string) {
						progress(id, stage, percent, message)
					}
				}

				result, err := s.AnalyzeDocument(gctx, refs[id], docProgress)
				if err != nil {
					zap.L().Warn("batch document failed",
						zap.String("document_id", id),
						zap.Error(err),
					)
					result = &model.DocumentAnalysisResult{
						DocumentType: model.DocTypeError,
						Errors:       []string{eris.ToString(err, false)},
					}
				}

				mu.Lock()
				results[id] = result
				mu.Unlock()
				// Failures are captured in the result map; returning nil
				// keeps the rest of the chunk running.
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

func tagSource(fields []model.ExtractedField, documentType string) []model.ExtractedField {
	tagged := make([]model.ExtractedField, len(fields))
	for i, f := range fields {
		f.SourceDocumentType = documentType
		tagged[i] = f
	}
	return tagged
}
