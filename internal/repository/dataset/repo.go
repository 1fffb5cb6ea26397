package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/lshdex/internal/db"
	"github.com/kailas-cloud/lshdex/internal/domain"
	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
)

// store is the consumer interface for datasets (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/dataset.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a dataset repository.
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

// Create stores a dataset config in one SET NX, so concurrent creators
// of the same key see exactly one winner.
func (r *Repo) Create(ctx context.Context, ds domds.Dataset) error {
	data, err := marshalDataset(ds)
	if err != nil {
		return err
	}

	ok, err := r.store.SetNX(ctx, r.metaKey(ds.Key()), data)
	if err != nil {
		return fmt.Errorf("set dataset %s: %w", ds.Key(), err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Get retrieves a dataset by key.
func (r *Repo) Get(ctx context.Context, key string) (domds.Dataset, error) {
	data, err := r.store.Get(ctx, r.metaKey(key))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domds.Dataset{}, domain.ErrNotFound
		}
		return domds.Dataset{}, fmt.Errorf("get dataset %s: %w", key, err)
	}
	return unmarshalDataset(data)
}

// List returns all datasets sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domds.Dataset, error) {
	keys, err := r.store.Scan(ctx, r.metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan datasets: %w", err)
	}
	if len(keys) == 0 {
		return []domds.Dataset{}, nil
	}

	values, err := r.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get multi datasets: %w", err)
	}

	datasets := make([]domds.Dataset, 0, len(values))
	for i, data := range values {
		if data == nil {
			continue // deleted between SCAN and GET
		}
		ds, err := unmarshalDataset(data)
		if err != nil {
			return nil, fmt.Errorf("parse dataset %s: %w", keys[i], err)
		}
		datasets = append(datasets, ds)
	}

	sort.Slice(datasets, func(i, j int) bool {
		if datasets[i].CreatedAt() != datasets[j].CreatedAt() {
			return datasets[i].CreatedAt() < datasets[j].CreatedAt()
		}
		return datasets[i].Key() < datasets[j].Key()
	})

	return datasets, nil
}

// Delete removes the dataset config. Document data is removed separately.
func (r *Repo) Delete(ctx context.Context, key string) error {
	mk := r.metaKey(key)
	exists, err := r.store.Exists(ctx, mk)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, mk); err != nil {
		return fmt.Errorf("del dataset %s: %w", key, err)
	}
	return nil
}

// Key pattern: lshdex:dataset:{key}

func (r *Repo) metaKey(key string) string {
	return fmt.Sprintf("%sdataset:%s", r.prefix, key)
}
