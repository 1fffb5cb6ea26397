package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	lshdex "github.com/kailas-cloud/lshdex/pkg/sdk"
)

func newNeighborsCmd(a *app) *cobra.Command {
	var (
		dataset     string
		doc         string
		maxDistance float64
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "neighbors",
		Short: "List near-duplicates of a document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			return runNeighbors(cmd.Context(), c, cmd.OutOrStdout(), dataset, doc, maxDistance, limit)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataset, "dataset", "", "Dataset key")
	f.StringVar(&doc, "doc", "", "Document ID")
	f.Float64Var(&maxDistance, "max-distance", 1, "Keep neighbors at or below this Jaccard distance")
	f.IntVar(&limit, "limit", 20, "Maximum neighbors to print (0 = all)")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func runNeighbors(
	ctx context.Context, c *lshdex.Client, out io.Writer,
	dataset, doc string, maxDistance float64, limit int,
) error {
	ns, err := c.Documents(dataset).Neighbors(ctx, doc,
		lshdex.MaxDistance(maxDistance),
		lshdex.Limit(limit),
	)
	if err != nil {
		return err
	}
	if len(ns) == 0 {
		fmt.Fprintln(out, "no neighbors")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDISTANCE\tSIMILARITY\tESTIMATE")
	for _, n := range ns {
		estimate := "signature"
		if !n.Exact {
			estimate = "bands"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%s\n", n.ID, n.Distance, 1-n.Distance, estimate)
	}
	return tw.Flush()
}

func newPurgeCmd(a *app) *cobra.Command {
	var dataset string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete a dataset with every document it owns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Datasets().Purge(cmd.Context(), dataset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", dataset)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset key")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func newDatasetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List datasets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			return runDatasets(cmd.Context(), c, cmd.OutOrStdout())
		},
	}
}

func runDatasets(ctx context.Context, c *lshdex.Client, out io.Writer) error {
	list, err := c.Datasets().List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSOURCE\tFILENAME\tROWS\tBANDS\tSHINGLE\tTHRESHOLD\tCREATED")
	for _, ds := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%.3f\t%s\n",
			ds.Key, ds.Source, ds.Filename, ds.Rows, ds.Bands, ds.ShingleType, ds.Threshold,
			time.UnixMilli(ds.CreatedAt).UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
