package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kailas-cloud/lshdex/internal/domain"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
)

// DocumentRepo implements usecase/document.Repository on PostgreSQL.
type DocumentRepo struct {
	db *sqlx.DB
}

type documentRow struct {
	DocID     string        `db:"doc_id"`
	Buckets   pq.Int64Array `db:"buckets"`
	Signature pq.Int64Array `db:"signature"`
	CreatedAt int64         `db:"created_at"`
}

func (r documentRow) toDomain(datasetKey string) domdoc.Record {
	return domdoc.Reconstruct(datasetKey, r.DocID, toUint64s(r.Buckets), toUint64s(r.Signature), r.CreatedAt)
}

// Insert stores rec and its bucket postings in one transaction unless the document
// already exists, in which case the stored record is returned with created=false.
func (r *DocumentRepo) Insert(ctx context.Context, rec domdoc.Record) (domdoc.Record, bool, error) {
	ds, id := rec.DatasetKey(), rec.ID()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domdoc.Record{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO documents (dataset_key, doc_id, buckets, signature, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (dataset_key, doc_id) DO NOTHING`,
		ds, id, toInt64s(rec.Buckets()), toInt64s(rec.Signature()), rec.CreatedAt(),
	)
	if err != nil {
		return domdoc.Record{}, false, fmt.Errorf("insert document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domdoc.Record{}, false, fmt.Errorf("insert document %s: %w", id, err)
	}
	if n == 0 {
		_ = tx.Rollback()
		existing, err := r.Get(ctx, ds, id)
		if err != nil {
			return domdoc.Record{}, false, fmt.Errorf("load existing %s: %w", id, err)
		}
		return existing, false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_buckets (dataset_key, bucket, doc_id)
		SELECT $1, unnest($2::BIGINT[]), $3
		ON CONFLICT DO NOTHING`,
		ds, toInt64s(rec.Buckets()), id,
	); err != nil {
		return domdoc.Record{}, false, fmt.Errorf("insert buckets %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return domdoc.Record{}, false, fmt.Errorf("commit: %w", err)
	}
	return rec, true, nil
}

// Get returns a record by document ID.
func (r *DocumentRepo) Get(ctx context.Context, datasetKey, id string) (domdoc.Record, error) {
	const query = `SELECT doc_id, buckets, signature, created_at
		FROM documents WHERE dataset_key = $1 AND doc_id = $2`
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, datasetKey, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domdoc.Record{}, domain.ErrDocumentNotFound
		}
		return domdoc.Record{}, fmt.Errorf("select document %s: %w", id, err)
	}
	return row.toDomain(datasetKey), nil
}

// GetMany returns the records that exist among ids, in input order.
func (r *DocumentRepo) GetMany(ctx context.Context, datasetKey string, ids []string) ([]domdoc.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT doc_id, buckets, signature, created_at
		FROM documents WHERE dataset_key = $1 AND doc_id = ANY($2)`
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, datasetKey, pq.StringArray(ids)); err != nil {
		return nil, fmt.Errorf("select documents %s: %w", datasetKey, err)
	}

	byID := make(map[string]documentRow, len(rows))
	for _, row := range rows {
		byID[row.DocID] = row
	}
	recs := make([]domdoc.Record, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			recs = append(recs, row.toDomain(datasetKey))
			delete(byID, id)
		}
	}
	return recs, nil
}

// Candidates returns the IDs of documents holding bucket.
func (r *DocumentRepo) Candidates(ctx context.Context, datasetKey string, bucket uint64) ([]string, error) {
	const query = `SELECT doc_id FROM document_buckets WHERE dataset_key = $1 AND bucket = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, datasetKey, int64(bucket)); err != nil {
		return nil, fmt.Errorf("select bucket %d: %w", bucket, err)
	}
	return ids, nil
}

// Count returns the number of documents in a dataset.
func (r *DocumentRepo) Count(ctx context.Context, datasetKey string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM documents WHERE dataset_key = $1`, datasetKey); err != nil {
		return 0, fmt.Errorf("count documents %s: %w", datasetKey, err)
	}
	return n, nil
}

// List returns document IDs in byte order with offset-based cursor pagination.
func (r *DocumentRepo) List(ctx context.Context, datasetKey, cursor string, limit int) ([]string, string, error) {
	if limit <= 0 {
		limit = 20
	}

	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, domain.ErrInvalidRequest)
		}
		offset = parsed
	}

	const query = `SELECT doc_id FROM documents WHERE dataset_key = $1
		ORDER BY doc_id COLLATE "C" LIMIT $2 OFFSET $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, datasetKey, limit+1, offset); err != nil {
		return nil, "", fmt.Errorf("list documents %s: %w", datasetKey, err)
	}

	var nextCursor string
	if len(ids) > limit {
		ids = ids[:limit]
		nextCursor = strconv.Itoa(offset + limit)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nextCursor, nil
}

// DeleteAll removes every record and bucket posting of a dataset.
func (r *DocumentRepo) DeleteAll(ctx context.Context, datasetKey string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_buckets WHERE dataset_key = $1`, datasetKey); err != nil {
		return fmt.Errorf("delete buckets %s: %w", datasetKey, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE dataset_key = $1`, datasetKey); err != nil {
		return fmt.Errorf("delete documents %s: %w", datasetKey, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
