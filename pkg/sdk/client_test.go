package lshdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newMemoryClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithMemory(),
		WithSeedSource(rand.NewPCG(1, 2)),
		WithLSHDefaults(LSHDefaults{Rows: 2, Bands: 8, ShingleType: ShingleWord}),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_NoBackend(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no backend provided")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", readinessTimeout: time.Second}
	_, err := openBackend(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_InvalidLSHDefaults(t *testing.T) {
	for _, d := range []LSHDefaults{{BitWidth: 65}, {Bands: -1}, {Rows: -2}} {
		_, err := New(context.Background(), WithMemory(), WithLSHDefaults(d))
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("defaults %+v: err = %v, want ErrInvalidConfig", d, err)
		}
	}
}

func TestNew_PostgresRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), WithPostgres(""))
	if err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestLSHParams_Defaults(t *testing.T) {
	p, err := lshParams(LSHDefaults{})
	if err != nil {
		t.Fatalf("lshParams: %v", err)
	}
	if p.Rows != 5 || p.Bands != 20 || p.ShingleType != "c4" || p.Modulo != 1<<31-1 || p.BitWidth != 64 {
		t.Errorf("defaults = %+v", p)
	}

	p, err = lshParams(LSHDefaults{Rows: 3, ShingleType: ShingleChar, BitWidth: 32})
	if err != nil {
		t.Fatalf("lshParams: %v", err)
	}
	if p.Rows != 3 || p.Bands != 20 || p.ShingleType != "c" || p.BitWidth != 32 {
		t.Errorf("overrides = %+v", p)
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q, want valkey", cfg.driver)
	}
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	cfg2 := &clientConfig{}
	WithRedis("localhost:6380", "pass").apply(cfg2)
	if cfg2.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg2.driver)
	}

	cfg3 := &clientConfig{}
	WithPostgres("postgres://localhost/lshdex").apply(cfg3)
	WithPostgresPool(4).apply(cfg3)
	if cfg3.driver != "postgres" || cfg3.dsn != "postgres://localhost/lshdex" || cfg3.maxOpenConns != 4 {
		t.Errorf("postgres cfg = %+v", cfg3)
	}

	cfg4 := &clientConfig{}
	WithMaxBatchSize(500).apply(cfg4)
	WithSimilarityConcurrency(3).apply(cfg4)
	WithKeyAttempts(6).apply(cfg4)
	WithKeyPrefix("t1:").apply(cfg4)
	if cfg4.maxBatchSize != 500 || cfg4.similarityConcurrency != 3 || cfg4.keyAttempts != 6 || cfg4.keyPrefix != "t1:" {
		t.Errorf("cfg = %+v", cfg4)
	}

	cfg5 := &clientConfig{}
	logger := slog.Default()
	WithLogger(logger).apply(cfg5)
	if cfg5.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg5)
	if cfg5.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestClient_Close_NilBackend(t *testing.T) {
	c := &Client{}
	c.Close()
}

func TestClient_MemoryEndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t)

	ds, created, err := c.Datasets().Create(ctx, "crawl", "pages.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	if ds.Rows != 2 || ds.Bands != 8 || len(ds.Seeds) != 16 || ds.ShingleType != ShingleWord {
		t.Errorf("dataset = %+v", ds)
	}

	again, created, err := c.Datasets().Create(ctx, "crawl", "pages.txt")
	if err != nil {
		t.Fatalf("Create again: %v", err)
	}
	if created || again.Key != ds.Key {
		t.Errorf("reuse: created=%v key=%q, want false %q", created, again.Key, ds.Key)
	}

	docs := c.Documents(ds.Key)
	text := "the quick brown fox jumps over the lazy dog"
	a, created, err := docs.Ingest(ctx, "a", text)
	if err != nil || !created {
		t.Fatalf("Ingest a: created=%v err=%v", created, err)
	}
	if len(a.Buckets) != 8 || len(a.Signature) != 16 {
		t.Errorf("record shape = %d buckets, %d signature", len(a.Buckets), len(a.Signature))
	}
	if _, _, err := docs.Ingest(ctx, "b", text); err != nil {
		t.Fatalf("Ingest b: %v", err)
	}
	if _, _, err := docs.Ingest(ctx, "c", "completely unrelated words about sailing ships"); err != nil {
		t.Fatalf("Ingest c: %v", err)
	}

	// Re-ingesting keeps the original record.
	_, created, err = docs.Ingest(ctx, "a", "different text")
	if err != nil || created {
		t.Fatalf("re-ingest: created=%v err=%v", created, err)
	}
	got, err := docs.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := range a.Buckets {
		if got.Buckets[i] != a.Buckets[i] {
			t.Fatalf("bucket %d changed after re-ingest", i)
		}
	}

	ns, err := docs.Neighbors(ctx, "a")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(ns) != 1 || ns[0].ID != "b" || ns[0].Distance != 0 || !ns[0].Exact {
		t.Errorf("neighbors = %+v, want [b 0 exact]", ns)
	}

	missing, err := docs.Neighbors(ctx, "nope")
	if err != nil {
		t.Fatalf("Neighbors missing: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing neighbors = %+v, want empty", missing)
	}

	info, err := c.Datasets().Get(ctx, ds.Key)
	if err != nil {
		t.Fatalf("Get dataset: %v", err)
	}
	if info.Documents != 3 {
		t.Errorf("documents = %d, want 3", info.Documents)
	}

	page, err := docs.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.IDs) != 2 || page.IDs[0] != "a" || page.NextCursor == "" {
		t.Errorf("page = %+v", page)
	}

	if err := c.Datasets().Purge(ctx, ds.Key); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := c.Datasets().Get(ctx, ds.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("after purge err = %v, want ErrNotFound", err)
	}
}

func TestClient_IngestBatch(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t, WithMaxBatchSize(3))

	ds, _, err := c.Datasets().Create(ctx, "crawl", "batch.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	docs := c.Documents(ds.Key)

	results := docs.IngestBatch(ctx, []Document{
		{ID: "one", Text: "first document"},
		{Text: "second document without id"},
		{ID: "bad id\x00", Text: "rejected"},
	})
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if !results[0].OK || !results[0].Created {
		t.Errorf("result[0] = %+v", results[0])
	}
	if !results[1].OK || len(results[1].ID) != 36 {
		t.Errorf("result[1] = %+v, want uuid id", results[1])
	}
	if results[2].OK || !errors.Is(results[2].Err, ErrInvalidRequest) {
		t.Errorf("result[2] = %+v, want invalid request", results[2])
	}

	tooMany := docs.IngestBatch(ctx, make([]Document, 4))
	for _, r := range tooMany {
		if r.OK {
			t.Fatal("oversized batch must fail every item")
		}
	}
}

func TestClient_DatasetErrors(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t)

	if _, _, err := c.Datasets().Create(ctx, "crawl", "x.txt", WithBitWidth(65)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid bit width err = %v, want ErrInvalidConfig", err)
	}
	if _, _, err := c.Datasets().Create(ctx, "crawl", "y.txt", WithShingleType("x")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid shingle err = %v, want ErrInvalidConfig", err)
	}
	if _, _, err := c.Datasets().Create(ctx, "crawl", "z.txt", WithBands(-3), WithRows(-1)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative bands err = %v, want ErrInvalidConfig", err)
	}
	if _, _, err := c.Datasets().Create(ctx, "crawl", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty filename err = %v, want ErrInvalidRequest", err)
	}
	if err := c.Datasets().Purge(ctx, "k9999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("purge missing err = %v, want ErrNotFound", err)
	}
	if _, _, err := c.Documents("k9999").Ingest(ctx, "a", "text"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ingest into missing dataset err = %v, want ErrNotFound", err)
	}
}

func TestClient_HealthAndPing(t *testing.T) {
	c := newMemoryClient(t)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	h := c.Health(ctx)
	if !h.Healthy() || h.Checks["database"] != "ok" {
		t.Errorf("health = %+v", h)
	}
	if f := h.Failing(); len(f) != 0 {
		t.Errorf("failing = %v, want none", f)
	}
}

func TestHealthStatus_Failing(t *testing.T) {
	h := HealthStatus{
		Status: HealthDegraded,
		Checks: map[string]string{"schema": "error", "database": "ok", "cache": "error"},
	}
	if h.Healthy() {
		t.Error("degraded status reported healthy")
	}
	got := h.Failing()
	if len(got) != 2 || got[0] != "cache" || got[1] != "schema" {
		t.Errorf("failing = %v, want [cache schema]", got)
	}
}

func TestClient_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newMemoryClient(t, WithPrometheus(reg))
	b := newMemoryClient(t, WithPrometheus(reg))

	ctx := context.Background()
	_ = a.Ping(ctx)
	_ = b.Ping(ctx)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "lshdex_sdk_operations_total" {
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 2 {
				t.Errorf("ping count = %v, want 2", got)
			}
			return
		}
	}
	t.Error("lshdex_sdk_operations_total not found")
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("document.get", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("document.get", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "lshdex_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("lshdex_sdk_operations_total not found")
	}
}

func TestObserver_IncompatibleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lshdex", Subsystem: "sdk", Name: "operations_total", Help: "clash",
	}))
	if _, err := newObserver(nil, reg); err == nil {
		t.Fatal("expected error for clashing metric")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, statusOK},
		{fmt.Errorf("get dataset: %w", ErrNotFound), statusNotFound},
		{ErrDocumentNotFound, statusNotFound},
		{fmt.Errorf("ingest: %w", ErrInvalidRequest), statusInvalid},
		{ErrInvalidConfig, statusInvalid},
		{errors.New("connection reset"), statusError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserver_BatchAndNeighbors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newMemoryClient(t, WithPrometheus(reg))
	ctx := context.Background()

	ds, _, err := c.Datasets().Create(ctx, "src", "metrics.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	docs := c.Documents(ds.Key)
	if _, _, err := docs.Ingest(ctx, "a", "one two three"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	docs.IngestBatch(ctx, []Document{
		{ID: "a", Text: "one two three"},
		{ID: "b", Text: "one two three"},
	})
	if _, err := docs.Neighbors(ctx, "a"); err != nil {
		t.Fatalf("Neighbors: %v", err)
	}

	items := c.obs.metrics.batchItems
	if got := testutil.ToFloat64(items.WithLabelValues("created")); got != 1 {
		t.Errorf("created = %v, want 1", got)
	}
	if got := testutil.ToFloat64(items.WithLabelValues("existing")); got != 1 {
		t.Errorf("existing = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.obs.metrics.neighbors); got != 1 {
		t.Errorf("neighbors histogram series = %d, want 1", got)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil)
	obs.observe("test.op", time.Now(), errors.New("test error"))
	obs.observe("test.op", time.Now(), ErrNotFound)
}
