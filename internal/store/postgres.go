package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/casebridge/docintel/internal/db"
	"github.com/casebridge/docintel/internal/model"
)

// PostgresStore implements Store over a pgx pool.
type PostgresStore struct {
	pool db.Querier
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	queryCaseVisaType = `SELECT visa_type FROM cases WHERE id = $1`

	queryChecklist = `SELECT document_type, description, required
		FROM checklist_items WHERE visa_type = $1 ORDER BY position`

	queryUploadedDocuments = `SELECT id, document_type, status, confidence, expires_at, uploaded_at
		FROM case_documents WHERE case_id = $1 ORDER BY uploaded_at`
)

// NewPostgres creates a PostgresStore with its own connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromQuerier wraps an existing querier, used in tests with
// pgxmock.
func NewPostgresFromQuerier(q db.Querier) *PostgresStore {
	return &PostgresStore{pool: q}
}

func (s *PostgresStore) CaseVisaType(ctx context.Context, caseID string) (string, error) {
	var visaType string
	err := s.pool.QueryRow(ctx, queryCaseVisaType, caseID).Scan(&visaType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(ErrCaseNotFound, "case %s", caseID)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: load case %s", caseID)
	}
	return visaType, nil
}

func (s *PostgresStore) Checklist(ctx context.Context, visaType string) ([]model.ChecklistItem, error) {
	rows, err := s.pool.Query(ctx, queryChecklist, visaType)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load checklist %s", visaType)
	}
	defer rows.Close()

	var items []model.ChecklistItem
	for rows.Next() {
		var item model.ChecklistItem
		if err := rows.Scan(&item.DocumentType, &item.Description, &item.Required); err != nil {
			return nil, eris.Wrap(err, "postgres: scan checklist item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate checklist")
	}
	return items, nil
}

func (s *PostgresStore) UploadedDocuments(ctx context.Context, caseID string) ([]model.UploadedDocument, error) {
	rows, err := s.pool.Query(ctx, queryUploadedDocuments, caseID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load documents for case %s", caseID)
	}
	defer rows.Close()

	var docs []model.UploadedDocument
	for rows.Next() {
		var doc model.UploadedDocument
		if err := rows.Scan(&doc.ID, &doc.DocumentType, &doc.Status, &doc.Confidence, &doc.ExpiresAt, &doc.UploadedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate documents")
	}
	return docs, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
