package document

import (
	"context"
	"testing"

	"github.com/kailas-cloud/lshdex/internal/db"
	domdoc "github.com/kailas-cloud/lshdex/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	getFn       func(ctx context.Context, key string) ([]byte, error)
	getMultiFn  func(ctx context.Context, keys []string) ([][]byte, error)
	setNXFn     func(ctx context.Context, key string, value []byte) (bool, error)
	delFn       func(ctx context.Context, key string) error
	delMultiFn  func(ctx context.Context, keys []string) error
	sAddMultiFn func(ctx context.Context, items []db.SetAddItem) error
	sMembersFn  func(ctx context.Context, key string) ([]string, error)
	sCardFn     func(ctx context.Context, key string) (int64, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	if m.setNXFn != nil {
		return m.setNXFn(ctx, key, value)
	}
	return true, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) error {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return nil
}

func (m *mockStore) SAddMulti(ctx context.Context, items []db.SetAddItem) error {
	if m.sAddMultiFn != nil {
		return m.sAddMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if m.sMembersFn != nil {
		return m.sMembersFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) SCard(ctx context.Context, key string) (int64, error) {
	if m.sCardFn != nil {
		return m.sCardFn(ctx, key)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testRecord(t *testing.T, id string, buckets ...uint64) domdoc.Record {
	t.Helper()
	sig := make([]uint64, len(buckets)*2)
	for i := range sig {
		sig[i] = uint64(i)
	}
	rec, err := domdoc.New("k0001", id, buckets, sig, len(buckets), len(sig), 1000)
	if err != nil {
		t.Fatalf("create test record: %v", err)
	}
	return rec
}
