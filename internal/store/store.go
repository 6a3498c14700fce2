// Package store reads case data for the document pipeline: a case's visa
// category, the category's document checklist, and the documents uploaded to
// the case. The pipeline never writes; ownership of this data stays with the
// case-management system.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/casebridge/docintel/internal/model"
)

// ErrCaseNotFound is returned when a case id resolves to nothing.
var ErrCaseNotFound = eris.New("store: case not found")

// Store is the read-only case data interface.
type Store interface {
	CaseVisaType(ctx context.Context, caseID string) (string, error)
	Checklist(ctx context.Context, visaType string) ([]model.ChecklistItem, error)
	UploadedDocuments(ctx context.Context, caseID string) ([]model.UploadedDocument, error)

	Ping(ctx context.Context) error
	Close() error
}
