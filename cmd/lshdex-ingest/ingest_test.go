package main

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lshdex/internal/config"
	lshdex "github.com/kailas-cloud/lshdex/pkg/sdk"
)

func newMemoryClient(t *testing.T) *lshdex.Client {
	t.Helper()
	c, err := lshdex.New(context.Background(),
		lshdex.WithMemory(),
		lshdex.WithSeedSource(rand.NewPCG(7, 8)),
		lshdex.WithLSHDefaults(lshdex.LSHDefaults{Rows: 2, Bands: 10, ShingleType: lshdex.ShingleWord}),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestRunIngest(t *testing.T) {
	ctx := context.Background()
	c := newMemoryClient(t)

	items := []item{
		{id: "a", text: "the quick brown fox jumps over the lazy dog"},
		{id: "b", text: "the quick brown fox jumps over the lazy dog"},
		{id: "c", text: "an entirely different sentence about sailing"},
		{id: "missing", path: filepath.Join(t.TempDir(), "gone.txt")},
	}
	o := &ingestOptions{source: "test", name: "corpus", workers: 2, chunkSize: 2, quiet: true}

	sum, err := runIngest(ctx, c, zap.NewNop(), io.Discard, o, items)
	require.NoError(t, err)
	require.EqualValues(t, 3, sum.Created)
	require.EqualValues(t, 0, sum.Existing)
	require.EqualValues(t, 1, sum.Failed)

	// A second run reuses the dataset and finds every document.
	again, err := runIngest(ctx, c, zap.NewNop(), io.Discard, o, items[:3])
	require.NoError(t, err)
	require.Equal(t, sum.Dataset, again.Dataset)
	require.EqualValues(t, 3, again.Existing)

	var out bytes.Buffer
	require.NoError(t, runNeighbors(ctx, c, &out, sum.Dataset, "a", 1, 0))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "DISTANCE")
	require.True(t, strings.HasPrefix(lines[1], "b "))
	require.Contains(t, lines[1], "0.0000")

	out.Reset()
	require.NoError(t, runNeighbors(ctx, c, &out, sum.Dataset, "nope", 1, 0))
	require.Equal(t, "no neighbors\n", out.String())

	out.Reset()
	require.NoError(t, runDatasets(ctx, c, &out))
	require.Contains(t, out.String(), sum.Dataset)
	require.Contains(t, out.String(), "corpus")
}

func TestRunNeighbors_UnknownDataset(t *testing.T) {
	c := newMemoryClient(t)
	err := runNeighbors(context.Background(), c, io.Discard, "k0000", "a", 1, 0)
	require.ErrorIs(t, err, lshdex.ErrNotFound)
}

func TestIngestCommand_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		`{"id":"x","text":"one two three four"}`,
		`{"id":"y","text":"five six seven eight"}`,
		`{"text":"nine ten"}`,
	}, "\n")), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--driver", "memory", "ingest", "--source", "cli", "--jsonl", path, "-q"})

	require.NoError(t, root.Execute())
	require.Regexp(t, `^dataset k\d{4}: 3 created, 0 existing, 0 failed\n$`, out.String())
}

func TestIngestCommand_RequiresOneInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--driver", "memory", "ingest", "--source", "cli"})
	require.ErrorContains(t, root.Execute(), "exactly one of --root or --jsonl")
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"ingest", "neighbors", "purge", "datasets"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
	for _, name := range []string{"env", "config", "driver", "addr", "dsn"} {
		require.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "memory", mutate: func(c *config.Config) { c.Database.Driver = config.DriverMemory }},
		{name: "valkey", mutate: func(c *config.Config) {
			c.Database.Driver = config.DriverValkey
			c.Database.Addrs = []string{"localhost:6379"}
		}},
		{name: "redis without addrs", mutate: func(c *config.Config) {
			c.Database.Driver = config.DriverRedis
		}, wantErr: "addrs"},
		{name: "postgres", mutate: func(c *config.Config) {
			c.Database.Driver = config.DriverPostgres
			c.Database.DSN = "postgres://localhost/lshdex"
		}},
		{name: "unknown", mutate: func(c *config.Config) { c.Database.Driver = "sqlite" }, wantErr: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			opts, err := clientOptions(cfg)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, opts)
		})
	}
}
