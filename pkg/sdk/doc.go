// Package lshdex provides an embeddable near-duplicate document index built on
// MinHash signatures and LSH banding, backed by Redis, Valkey, PostgreSQL or memory.
//
// A dataset fixes the hashing configuration (rows, bands, shingle type, modulo,
// bucket width and seeds) once at creation. Documents ingested into it are
// shingled, signed and split into one bucket per band. Documents sharing a
// bucket are neighbor candidates, ranked by estimated Jaccard distance.
//
//	client, _ := lshdex.New(ctx, lshdex.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	ds, _, _ := client.Datasets().Create(ctx, "crawl", "pages.jsonl",
//	    lshdex.WithShingleType(lshdex.ShingleWord),
//	)
//	docs := client.Documents(ds.Key)
//	_, _, _ = docs.Ingest(ctx, "a", "the quick brown fox")
//	_, _, _ = docs.Ingest(ctx, "b", "the quick brown fox jumps")
//	near, _ := docs.Neighbors(ctx, "a", lshdex.MaxDistance(0.5), lshdex.Limit(10))
package lshdex
