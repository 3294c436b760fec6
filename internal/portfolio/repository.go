package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebook/sitebook/internal/platform/db"
)

// undefinedTable is the Postgres SQLSTATE raised before migrations have run.
const undefinedTable = "42P01"

// Repository reads development documents stored as JSONB.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository constructs a repository wrapper.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

// Documents loads every development document ordered by id.
func (r *Repository) Documents(ctx context.Context) ([]DevelopmentDocument, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("portfolio: repository not initialised")
	}
	const query = `SELECT id, document FROM developments WHERE archived_at IS NULL ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return nil, fmt.Errorf("portfolio: developments table missing: %w", err)
		}
		return nil, err
	}
	defer rows.Close()
	var docs []DevelopmentDocument
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc DevelopmentDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("portfolio: decode development %s: %w", id, err)
		}
		if doc.ID == "" {
			doc.ID = id
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Snapshot loads and validates the current portfolio.
func (r *Repository) Snapshot(ctx context.Context) (Snapshot, error) {
	docs, err := r.Documents(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(docs, r.now().UTC())
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UpsertDocument stores a development document, replacing any previous version.
func (r *Repository) UpsertDocument(ctx context.Context, doc DevelopmentDocument) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("portfolio: repository not initialised")
	}
	return upsertDocument(ctx, r.pool, doc)
}

// UpsertDocuments stores several documents in one transaction. Either every
// document is written or none is.
func (r *Repository) UpsertDocuments(ctx context.Context, docs []DevelopmentDocument) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("portfolio: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, doc := range docs {
			if err := upsertDocument(ctx, tx, doc); err != nil {
				return fmt.Errorf("portfolio: upsert %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}

func upsertDocument(ctx context.Context, conn execer, doc DevelopmentDocument) error {
	if _, err := buildDevelopment(doc); err != nil {
		return err
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	const upsert = `INSERT INTO developments (id, name, document, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document = EXCLUDED.document, updated_at = NOW()`
	_, err = conn.Exec(ctx, upsert, doc.ID, doc.Name, payload)
	return err
}

// EnsureSchema creates the developments table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("portfolio: repository not initialised")
	}
	const ddl = `CREATE TABLE IF NOT EXISTS developments (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    document    JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    archived_at TIMESTAMPTZ
)`
	_, err := r.pool.Exec(ctx, ddl)
	return err
}

// StaticSource serves a fixed set of documents. It backs tests and file-driven runs.
type StaticSource struct {
	Docs    []DevelopmentDocument
	TakenAt time.Time
}

// Documents returns the fixed documents.
func (s StaticSource) Documents(context.Context) ([]DevelopmentDocument, error) {
	return s.Docs, nil
}

// Snapshot validates the fixed documents.
func (s StaticSource) Snapshot(context.Context) (Snapshot, error) {
	takenAt := s.TakenAt
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}
	return NewSnapshot(s.Docs, takenAt)
}

// DecodeDocuments parses a JSON array of development documents.
func DecodeDocuments(raw []byte) ([]DevelopmentDocument, error) {
	var docs []DevelopmentDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("portfolio: decode documents: %w", err)
	}
	return docs, nil
}
