package document

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/kailas-cloud/lshdex/internal/db"
	"github.com/kailas-cloud/lshdex/internal/domain"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
)

// purgeChunk bounds the number of records fetched per round-trip during DeleteAll.
const purgeChunk = 500

// store is the consumer interface for documents (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	SAddMulti(ctx context.Context, items []db.SetAddItem) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Repo implements usecase/document.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s, prefix: domain.KeyPrefix}
}

// WithKeyPrefix sets the namespace prepended to every key.
func (r *Repo) WithKeyPrefix(prefix string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// Insert stores rec unless a record with the same ID already exists.
// It returns the stored record and whether this call created it; when another
// writer got there first, the existing record is returned unchanged.
func (r *Repo) Insert(ctx context.Context, rec domdoc.Record) (domdoc.Record, bool, error) {
	ds, id := rec.DatasetKey(), rec.ID()
	key := r.docKey(ds, id)

	data, err := marshalRecord(rec)
	if err != nil {
		return domdoc.Record{}, false, err
	}

	ok, err := r.store.SetNX(ctx, key, data)
	if err != nil {
		return domdoc.Record{}, false, fmt.Errorf("set %s: %w", key, err)
	}
	if !ok {
		existing, err := r.Get(ctx, ds, id)
		if err != nil {
			return domdoc.Record{}, false, fmt.Errorf("load existing %s: %w", key, err)
		}
		return existing, false, nil
	}

	// Postings go in after the record claim; a failed write rolls the claim back.
	items := make([]db.SetAddItem, 0, len(rec.Buckets())+1)
	for _, b := range rec.Buckets() {
		items = append(items, db.SetAddItem{Key: r.bucketKey(ds, b), Members: []string{id}})
	}
	items = append(items, db.SetAddItem{Key: r.docsKey(ds), Members: []string{id}})

	if err := r.store.SAddMulti(ctx, items); err != nil {
		cleanupErr := r.store.Del(ctx, key)
		return domdoc.Record{}, false, errors.Join(fmt.Errorf("index %s: %w", key, err), cleanupErr)
	}
	return rec, true, nil
}

// Get returns a record by document ID.
func (r *Repo) Get(ctx context.Context, datasetKey, id string) (domdoc.Record, error) {
	key := r.docKey(datasetKey, id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Record{}, domain.ErrDocumentNotFound
		}
		return domdoc.Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	return unmarshalRecord(datasetKey, id, data)
}

// GetMany returns the records that exist among ids, in input order.
func (r *Repo) GetMany(ctx context.Context, datasetKey string, ids []string) ([]domdoc.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(datasetKey, id)
	}

	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get multi %s: %w", datasetKey, err)
	}

	recs := make([]domdoc.Record, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue
		}
		rec, err := unmarshalRecord(datasetKey, ids[i], data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Candidates returns the IDs of documents holding bucket.
func (r *Repo) Candidates(ctx context.Context, datasetKey string, bucket uint64) ([]string, error) {
	key := r.bucketKey(datasetKey, bucket)
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", key, err)
	}
	return ids, nil
}

// Count returns the number of documents in a dataset.
func (r *Repo) Count(ctx context.Context, datasetKey string) (int, error) {
	n, err := r.store.SCard(ctx, r.docsKey(datasetKey))
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", datasetKey, err)
	}
	return int(n), nil
}

// List returns document IDs in lexical order with offset-based cursor pagination.
func (r *Repo) List(ctx context.Context, datasetKey, cursor string, limit int) ([]string, string, error) {
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

	ids, err := r.store.SMembers(ctx, r.docsKey(datasetKey))
	if err != nil {
		return nil, "", fmt.Errorf("smembers %s: %w", datasetKey, err)
	}
	slices.Sort(ids)

	if offset >= len(ids) {
		return []string{}, "", nil
	}
	end := min(offset+limit, len(ids))

	var nextCursor string
	if end < len(ids) {
		nextCursor = strconv.Itoa(end)
	}
	return ids[offset:end], nextCursor, nil
}

// DeleteAll removes every record and bucket posting of a dataset.
func (r *Repo) DeleteAll(ctx context.Context, datasetKey string) error {
	ids, err := r.store.SMembers(ctx, r.docsKey(datasetKey))
	if err != nil {
		return fmt.Errorf("smembers %s: %w", datasetKey, err)
	}

	for chunk := range slices.Chunk(ids, purgeChunk) {
		recs, err := r.GetMany(ctx, datasetKey, chunk)
		if err != nil {
			return err
		}

		buckets := make(map[uint64]struct{})
		for _, rec := range recs {
			for _, b := range rec.Buckets() {
				buckets[b] = struct{}{}
			}
		}

		keys := make([]string, 0, len(chunk)+len(buckets))
		for _, id := range chunk {
			keys = append(keys, r.docKey(datasetKey, id))
		}
		for b := range buckets {
			keys = append(keys, r.bucketKey(datasetKey, b))
		}
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete documents %s: %w", datasetKey, err)
		}
	}

	if err := r.store.Del(ctx, r.docsKey(datasetKey)); err != nil {
		return fmt.Errorf("del %s: %w", r.docsKey(datasetKey), err)
	}
	return nil
}

// Key patterns: lshdex:{ds}:doc:{id}, lshdex:{ds}:bucket:{value}, lshdex:{ds}:docs

func (r *Repo) docKey(datasetKey, id string) string {
	return fmt.Sprintf("%s%s:doc:%s", r.prefix, datasetKey, id)
}

func (r *Repo) bucketKey(datasetKey string, bucket uint64) string {
	return fmt.Sprintf("%s%s:bucket:%d", r.prefix, datasetKey, bucket)
}

func (r *Repo) docsKey(datasetKey string) string {
	return fmt.Sprintf("%s%s:docs", r.prefix, datasetKey)
}
