package lsh

import "fmt"

// JaccardDistance estimates 1 - J(A, B) as the fraction of signature slots that differ.
func JaccardDistance(a, b []uint64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("signature lengths differ: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 1, nil
	}

	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return 1 - float64(matches)/float64(len(a)), nil
}

// BandDistance is the coarse estimate used when signatures are unavailable:
// 1 - sharedBands/bands, comparing buckets position by position.
func BandDistance(a, b []uint64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("bucket counts differ: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 1, nil
	}

	shared := 0
	for i := range a {
		if a[i] == b[i] {
			shared++
		}
	}
	return 1 - float64(shared)/float64(len(a)), nil
}
