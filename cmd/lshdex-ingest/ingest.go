package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	lshdex "github.com/kailas-cloud/lshdex/pkg/sdk"
)

type ingestOptions struct {
	source    string
	name      string
	root      string
	include   []string
	exclude   []string
	jsonl     string
	workers   int
	chunkSize int
	quiet     bool
}

// ingestSummary counts per-document outcomes.
type ingestSummary struct {
	Dataset  string
	Created  int64
	Existing int64
	Failed   int64
}

func newIngestCmd(a *app) *cobra.Command {
	o := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create or reuse a dataset and ingest a directory tree or JSONL file",
		Example: `  lshdex-ingest ingest --source crawl --root ./pages --include '**/*.html'
  lshdex-ingest ingest --source crawl --jsonl records.jsonl --workers 16`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (o.root == "") == (o.jsonl == "") {
				return errors.New("exactly one of --root or --jsonl is required")
			}
			if o.name == "" {
				o.name = filepath.Base(o.root + o.jsonl)
			}

			items, err := collectItems(o)
			if err != nil {
				return err
			}

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			sum, err := runIngest(cmd.Context(), c, a.logger, cmd.ErrOrStderr(), o, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dataset %s: %d created, %d existing, %d failed\n",
				sum.Dataset, sum.Created, sum.Existing, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d documents failed", sum.Failed)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.source, "source", "", "Provenance label of the dataset")
	f.StringVar(&o.name, "name", "", "Dataset filename (defaults to the base name of --root or --jsonl)")
	f.StringVar(&o.root, "root", "", "Directory to ingest; each file becomes one document")
	f.StringArrayVar(&o.include, "include", nil, "Glob of relative paths to include (repeatable, ** supported)")
	f.StringArrayVar(&o.exclude, "exclude", nil, "Glob of relative paths to exclude (repeatable)")
	f.StringVar(&o.jsonl, "jsonl", "", `JSONL file of {"id","text"} records`)
	f.IntVar(&o.workers, "workers", 4, "Concurrent ingest workers")
	f.IntVar(&o.chunkSize, "chunk", 50, "Documents per batch call (at most index.max_batch_size)")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

func collectItems(o *ingestOptions) ([]item, error) {
	if o.root != "" {
		return walkFiles(o.root, o.include, o.exclude)
	}
	f, err := os.Open(o.jsonl)
	if err != nil {
		return nil, fmt.Errorf("open jsonl: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readJSONL(f)
}

// runIngest creates or reuses the dataset and ingests items in chunks through a
// bounded worker pool. Per-document failures are counted, not fatal.
func runIngest(
	ctx context.Context, c *lshdex.Client, logger *zap.Logger, progress io.Writer,
	o *ingestOptions, items []item,
) (ingestSummary, error) {
	ds, created, err := c.Datasets().Create(ctx, o.source, o.name)
	if err != nil {
		return ingestSummary{}, fmt.Errorf("create dataset: %w", err)
	}
	logger.Info("dataset ready",
		zap.String("key", ds.Key),
		zap.Bool("created", created),
		zap.Int("documents", len(items)),
	)

	if o.quiet {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	docs := c.Documents(ds.Key)
	sum := ingestSummary{Dataset: ds.Key}
	chunk := max(o.chunkSize, 1)

	var g errgroup.Group
	g.SetLimit(max(o.workers, 1))
	for start := 0; start < len(items); start += chunk {
		if ctx.Err() != nil {
			break
		}
		part := items[start:min(start+chunk, len(items))]
		g.Go(func() error {
			defer func() { _ = bar.Add(len(part)) }()

			batch := make([]lshdex.Document, 0, len(part))
			for _, it := range part {
				text, err := it.load()
				if err != nil {
					atomic.AddInt64(&sum.Failed, 1)
					logger.Warn("load failed", zap.String("doc_id", it.id), zap.Error(err))
					continue
				}
				batch = append(batch, lshdex.Document{ID: it.id, Text: text})
			}
			for _, r := range docs.IngestBatch(ctx, batch) {
				switch {
				case !r.OK:
					atomic.AddInt64(&sum.Failed, 1)
					logger.Warn("ingest failed", zap.String("doc_id", r.ID), zap.Error(r.Err))
				case r.Created:
					atomic.AddInt64(&sum.Created, 1)
				default:
					atomic.AddInt64(&sum.Existing, 1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("ingest interrupted: %w", err)
	}
	return sum, nil
}
