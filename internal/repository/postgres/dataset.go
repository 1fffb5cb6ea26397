package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kailas-cloud/lshdex/internal/domain"
	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	"github.com/kailas-cloud/lshdex/internal/shingle"
)

const datasetColumns = `key, source, filename, file_key, band_rows, bands, shingle_type, modulo, bit_width, seeds, created_at`

// DatasetRepo implements usecase/dataset.Repository on PostgreSQL.
type DatasetRepo struct {
	db *sqlx.DB
}

type datasetRow struct {
	Key         string        `db:"key"`
	Source      string        `db:"source"`
	Filename    string        `db:"filename"`
	FileKey     string        `db:"file_key"`
	Rows        int           `db:"band_rows"`
	Bands       int           `db:"bands"`
	ShingleType string        `db:"shingle_type"`
	Modulo      int64         `db:"modulo"`
	BitWidth    int           `db:"bit_width"`
	Seeds       pq.Int64Array `db:"seeds"`
	CreatedAt   int64         `db:"created_at"`
}

func (r datasetRow) toDomain() (domds.Dataset, error) {
	ds, err := domds.Reconstruct(r.Key, r.Source, r.Filename, r.FileKey, domds.Params{
		Rows:        r.Rows,
		Bands:       r.Bands,
		ShingleType: shingle.Type(r.ShingleType),
		Modulo:      uint64(r.Modulo),
		BitWidth:    uint(r.BitWidth),
	}, toUint64s(r.Seeds), r.CreatedAt)
	if err != nil {
		return domds.Dataset{}, fmt.Errorf("reconstruct dataset %s: %w", r.Key, err)
	}
	return ds, nil
}

// Create inserts a dataset. The primary key makes concurrent creators race to a single winner.
func (r *DatasetRepo) Create(ctx context.Context, ds domds.Dataset) error {
	const query = `INSERT INTO datasets (` + datasetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query,
		ds.Key(), ds.Source(), ds.Filename(), ds.FileKey(),
		ds.Rows(), ds.Bands(), string(ds.ShingleType()),
		int64(ds.Modulo()), int(ds.BitWidth()), toInt64s(ds.Seeds()), ds.CreatedAt(),
	)
	if err != nil {
		if isConflict(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert dataset %s: %w", ds.Key(), err)
	}
	return nil
}

// Get retrieves a dataset by key.
func (r *DatasetRepo) Get(ctx context.Context, key string) (domds.Dataset, error) {
	const query = `SELECT ` + datasetColumns + ` FROM datasets WHERE key = $1`
	var row datasetRow
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domds.Dataset{}, domain.ErrNotFound
		}
		return domds.Dataset{}, fmt.Errorf("select dataset %s: %w", key, err)
	}
	return row.toDomain()
}

// List returns all datasets sorted by CreatedAt.
func (r *DatasetRepo) List(ctx context.Context) ([]domds.Dataset, error) {
	const query = `SELECT ` + datasetColumns + ` FROM datasets ORDER BY created_at, key`
	var rows []datasetRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select datasets: %w", err)
	}

	datasets := make([]domds.Dataset, 0, len(rows))
	for _, row := range rows {
		ds, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// Delete removes the dataset config. Document data is removed separately.
func (r *DatasetRepo) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", key, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
