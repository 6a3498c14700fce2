package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/casebridge/docintel/internal/model"
)

// SQLiteStore implements Store over an embedded SQLite database, used for
// local development and tests where no postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	visa_type TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS checklist_items (
	visa_type TEXT NOT NULL,
	document_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	required INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS case_documents (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	document_type TEXT NOT NULL,
	status TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	expires_at TIMESTAMP,
	uploaded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_case_documents_case ON case_documents(case_id);
`

// NewSQLite opens (or creates) a SQLite store at path. ":memory:" works.
func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// modernc sqlite misbehaves with concurrent writers on one connection
	// pool; the read paths here are fine with a single connection.
	database.SetMaxOpenConns(1)

	if _, err := database.ExecContext(ctx, sqliteSchema); err != nil {
		_ = database.Close()
		return nil, eris.Wrap(err, "sqlite: apply schema")
	}
	return &SQLiteStore{db: database}, nil
}

func (s *SQLiteStore) CaseVisaType(ctx context.Context, caseID string) (string, error) {
	var visaType string
	err := s.db.QueryRowContext(ctx, `SELECT visa_type FROM cases WHERE id = ?`, caseID).Scan(&visaType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(ErrCaseNotFound, "case %s", caseID)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: load case %s", caseID)
	}
	return visaType, nil
}

func (s *SQLiteStore) Checklist(ctx context.Context, visaType string) ([]model.ChecklistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_type, description, required FROM checklist_items WHERE visa_type = ? ORDER BY position`,
		visaType)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load checklist %s", visaType)
	}
	defer rows.Close() //nolint:errcheck

	var items []model.ChecklistItem
	for rows.Next() {
		var item model.ChecklistItem
		if err := rows.Scan(&item.DocumentType, &item.Description, &item.Required); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan checklist item")
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) UploadedDocuments(ctx context.Context, caseID string) ([]model.UploadedDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_type, status, confidence, expires_at, uploaded_at
		 FROM case_documents WHERE case_id = ? ORDER BY uploaded_at`,
		caseID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load documents for case %s", caseID)
	}
	defer rows.Close() //nolint:errcheck

	var docs []model.UploadedDocument
	for rows.Next() {
		var doc model.UploadedDocument
		var expires sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.DocumentType, &doc.Status, &doc.Confidence, &expires, &doc.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		if expires.Valid {
			t := expires.Time
			doc.ExpiresAt = &t
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SeedCase inserts a case with its documents, for development and tests.
func (s *SQLiteStore) SeedCase(ctx context.Context, caseID, visaType string, docs []model.UploadedDocument) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cases (id, visa_type) VALUES (?, ?)`, caseID, visaType); err != nil {
		return eris.Wrap(err, "sqlite: seed case")
	}
	for _, doc := range docs {
		var expires any
		if doc.ExpiresAt != nil {
			expires = *doc.ExpiresAt
		}
		uploaded := doc.UploadedAt
		if uploaded.IsZero() {
			uploaded = time.Now().UTC()
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO case_documents (id, case_id, document_type, status, confidence, expires_at, uploaded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, caseID, doc.DocumentType, doc.Status, doc.Confidence, expires, uploaded); err != nil {
			return eris.Wrap(err, "sqlite: seed document")
		}
	}
	return nil
}

// SeedChecklist inserts checklist items for a visa type, for development
// and tests.
func (s *SQLiteStore) SeedChecklist(ctx context.Context, visaType string, items []model.ChecklistItem) error {
	for i, item := range items {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO checklist_items (visa_type, document_type, description, required, position)
			 VALUES (?, ?, ?, ?, ?)`,
			visaType, item.DocumentType, item.Description, item.Required, i); err != nil {
			return eris.Wrap(err, "sqlite: seed checklist")
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
