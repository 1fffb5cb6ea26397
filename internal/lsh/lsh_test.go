package lsh

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/kailas-cloud/lshdex/internal/shingle"
)

func mustBanding(t *testing.T, rows, bands int, w uint) Banding {
	t.Helper()
	b, err := NewBanding(rows, bands, w)
	if err != nil {
		t.Fatalf("NewBanding(%d, %d, %d): %v", rows, bands, w, err)
	}
	return b
}

func mustSigner(t *testing.T, seeds []uint64, modulo uint64, st shingle.Type, w uint) Signer {
	t.Helper()
	s, err := NewSigner(seeds, modulo, st, w)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

func set(items ...string) shingle.Set {
	s := make(shingle.Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// --- Banding ---

func TestNewBanding_DerivedFields(t *testing.T) {
	tests := []struct {
		name     string
		bands    int
		w        uint
		bandBits uint
		hashBits uint
		bandMask uint64
		hashMask uint64
	}{
		{"one band", 1, 64, 0, 64, 0, math.MaxUint64},
		{"two bands", 2, 64, 1, 63, 1, math.MaxUint64 >> 1},
		{"power of two", 16, 64, 4, 60, 15, math.MaxUint64 >> 4},
		{"not power of two", 20, 64, 5, 59, 31, math.MaxUint64 >> 5},
		{"narrow width", 3, 8, 2, 6, 3, 63},
		{"no hash bits left", 32, 5, 5, 0, 31, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustBanding(t, 3, tc.bands, tc.w)
			if b.BandBits() != tc.bandBits {
				t.Errorf("BandBits = %d, want %d", b.BandBits(), tc.bandBits)
			}
			if b.HashBits() != tc.hashBits {
				t.Errorf("HashBits = %d, want %d", b.HashBits(), tc.hashBits)
			}
			if b.BandMask() != tc.bandMask {
				t.Errorf("BandMask = %d, want %d", b.BandMask(), tc.bandMask)
			}
			if b.HashMask() != tc.hashMask {
				t.Errorf("HashMask = %d, want %d", b.HashMask(), tc.hashMask)
			}
			if b.Hashes() != 3*tc.bands {
				t.Errorf("Hashes = %d, want %d", b.Hashes(), 3*tc.bands)
			}
		})
	}
}

func TestNewBanding_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		bands int
		w     uint
	}{
		{"zero bands", 2, 0, 64},
		{"negative bands", 2, -1, 64},
		{"zero rows", 0, 2, 64},
		{"zero width", 2, 2, 0},
		{"too wide", 2, 2, 65},
		{"negative hash bits", 2, 32, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewBanding(tc.rows, tc.bands, tc.w); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBucketize_LengthAndBandSegregation(t *testing.T) {
	b := mustBanding(t, 4, 10, 64)
	sig := make([]uint64, b.Hashes())
	for i := range sig {
		sig[i] = uint64(i * 7)
	}

	buckets, err := b.Bucketize(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 10 {
		t.Fatalf("len = %d, want 10", len(buckets))
	}
	for i, bkt := range buckets {
		if got := b.BandOf(bkt); got != i {
			t.Errorf("BandOf(bucket[%d]) = %d", i, got)
		}
	}
}

func TestBucketize_DisjointAcrossBands(t *testing.T) {
	b := mustBanding(t, 2, 4, 64)
	// Identical content in every band must still give distinct buckets.
	sig := []uint64{5, 5, 5, 5, 5, 5, 5, 5}
	buckets, err := b.Bucketize(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[uint64]int)
	for i, bkt := range buckets {
		if j, ok := seen[bkt]; ok {
			t.Fatalf("bands %d and %d share bucket %d", j, i, bkt)
		}
		seen[bkt] = i
	}
}

func TestBucketize_WrongLength(t *testing.T) {
	b := mustBanding(t, 2, 2, 64)
	if _, err := b.Bucketize([]uint64{1, 2, 3}); err == nil {
		t.Fatal("expected error for short signature")
	}
}

func TestBucketize_BandAgreement(t *testing.T) {
	b := mustBanding(t, 3, 2, 64)
	a := []uint64{1, 2, 3, 4, 5, 6}
	c := []uint64{1, 2, 3, 4, 5, 7}

	ba, _ := b.Bucketize(a)
	bc, _ := b.Bucketize(c)
	if ba[0] != bc[0] {
		t.Error("identical first band must give identical bucket")
	}
	if ba[1] == bc[1] {
		t.Error("differing second band should give different bucket")
	}
}

func TestBucketize_Deterministic(t *testing.T) {
	b := mustBanding(t, 5, 20, 64)
	rng := rand.New(rand.NewPCG(7, 11))
	sig := make([]uint64, b.Hashes())
	for i := range sig {
		sig[i] = rng.Uint64N(1 << 31)
	}
	first, _ := b.Bucketize(sig)
	second, _ := b.Bucketize(sig)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("bucket %d changed between calls", i)
		}
	}
}

func TestBucketize_NoHashBits(t *testing.T) {
	b := mustBanding(t, 1, 32, 5)
	sig := make([]uint64, 32)
	buckets, err := b.Bucketize(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, bkt := range buckets {
		if bkt != uint64(i) {
			t.Errorf("bucket[%d] = %d, want band index only", i, bkt)
		}
	}
}

func TestBucketize_WithinWidth(t *testing.T) {
	b := mustBanding(t, 2, 3, 16)
	buckets, _ := b.Bucketize([]uint64{9, 8, 7, 6, 5, 4})
	for i, bkt := range buckets {
		if bkt > b.MaxMask() {
			t.Errorf("bucket[%d] = %d exceeds 2^16-1", i, bkt)
		}
	}
}

func TestCandidateProbability(t *testing.T) {
	b := mustBanding(t, 5, 20, 64)
	if p := b.CandidateProbability(0); p != 0 {
		t.Errorf("p(0) = %f", p)
	}
	if p := b.CandidateProbability(1); p != 1 {
		t.Errorf("p(1) = %f", p)
	}
	low, high := b.CandidateProbability(0.2), b.CandidateProbability(0.9)
	if low >= 0.05 || high <= 0.99 {
		t.Errorf("curve not steep enough: p(0.2)=%f p(0.9)=%f", low, high)
	}
	if th := b.Threshold(); th < 0.5 || th > 0.6 {
		t.Errorf("threshold = %f, want ~0.55", th)
	}
}

// --- Signer ---

func TestC4Hash(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"four ascii bytes little endian", []byte("abcd"), 0x64636261},
		{"negative int32 sign extends", []byte{0xff, 0xff, 0xff, 0xff}, math.MaxUint64},
		{"three bytes big endian chunk", []byte("abc"), 0x616263},
		{"eight bytes xor fold", []byte("abcdefgh"), 0x61626364 ^ 0x65666768},
		{"multibyte rune drops partial tail", []byte("héll"), 0x68c3a96c},
		{"nine bytes drops partial tail", []byte("abcdefghi"), 0x61626364 ^ 0x65666768},
		{"empty", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c4Hash(tc.in); got != tc.want {
				t.Errorf("c4Hash(%q) = %#x, want %#x", tc.in, got, tc.want)
			}
		})
	}
}

func TestBaseHash_Masked(t *testing.T) {
	mask := lowMask(32)
	if got := BaseHash(string([]byte{0xff, 0xff, 0xff, 0xff}), shingle.C4, mask); got != mask {
		t.Errorf("C4 base hash = %#x, want %#x", got, mask)
	}
	for _, s := range []string{"alpha", "beta", "gamma"} {
		if got := BaseHash(s, shingle.Word, mask); got > mask {
			t.Errorf("BaseHash(%q) = %#x exceeds mask", s, got)
		}
	}
}

func TestSign_LengthAndRange(t *testing.T) {
	const modulo = 1000003
	seeds := []uint64{11, 22, 33, 44, 55, 66}
	for _, st := range []shingle.Type{shingle.Word, shingle.C4, shingle.Char} {
		s := mustSigner(t, seeds, modulo, st, 64)
		sig := s.Sign(shingle.Extract("the quick brown fox jumps", st))
		if len(sig) != len(seeds) {
			t.Fatalf("type %q: len = %d, want %d", st, len(sig), len(seeds))
		}
		for i, v := range sig {
			if v >= modulo {
				t.Errorf("type %q: sig[%d] = %d, not < modulo", st, i, v)
			}
		}
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := mustSigner(t, []uint64{1, 2, 3, 4}, 1000003, shingle.C4, 64)
	text := shingle.Extract("near duplicate documents", shingle.C4)
	a, b := s.Sign(text), s.Sign(text)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs between calls", i)
		}
	}
}

func TestSign_EmptySetIsSentinel(t *testing.T) {
	s := mustSigner(t, []uint64{1, 2, 3, 4}, 1000003, shingle.Word, 32)
	sig := s.Sign(shingle.Set{})
	for i, v := range sig {
		if v != s.Sentinel() {
			t.Errorf("sig[%d] = %d, want sentinel %d", i, v, s.Sentinel())
		}
	}
}

func TestNewSigner_Invalid(t *testing.T) {
	if _, err := NewSigner(nil, 7, shingle.Word, 64); err == nil {
		t.Error("expected error for no seeds")
	}
	if _, err := NewSigner([]uint64{1}, 0, shingle.Word, 64); err == nil {
		t.Error("expected error for zero modulo")
	}
	if _, err := NewSigner([]uint64{1}, 7, shingle.Type("x"), 64); err == nil {
		t.Error("expected error for unknown shingle type")
	}
	if _, err := NewSigner([]uint64{1}, 256, shingle.Word, 8); err == nil {
		t.Error("expected error for modulo above 2^8-1")
	}
	if _, err := NewSigner([]uint64{1}, 255, shingle.Word, 8); err != nil {
		t.Errorf("modulo 2^8-1 should be accepted: %v", err)
	}
}

func TestSign_NarrowWidthNeverHitsSentinel(t *testing.T) {
	const w = 4
	s := mustSigner(t, []uint64{0, 3, 5, 15}, MaxModulo(w), shingle.Word, w)
	for i := range 200 {
		sig := s.Sign(set(fmt.Sprintf("token-%d", i)))
		for j, v := range sig {
			if v >= s.Sentinel() {
				t.Fatalf("shingle %d slot %d = %d, reaches sentinel %d", i, j, v, s.Sentinel())
			}
		}
	}
}

func TestEmptyDocumentsCollideOnlyWithEachOther(t *testing.T) {
	b := mustBanding(t, 2, 4, 64)
	s := mustSigner(t, []uint64{3, 1, 4, 1, 5, 9, 2, 6}, 1000003, shingle.Word, 64)

	e1, _ := b.Bucketize(s.Sign(shingle.Extract("", shingle.Word)))
	e2, _ := b.Bucketize(s.Sign(shingle.Extract("   ", shingle.Word)))
	full, _ := b.Bucketize(s.Sign(shingle.Extract("some real words", shingle.Word)))

	for i := range e1 {
		if e1[i] != e2[i] {
			t.Errorf("empty documents differ at band %d", i)
		}
		if e1[i] == full[i] {
			t.Errorf("empty document collides with non-empty at band %d", i)
		}
	}
}

// --- Estimator ---

func TestJaccardDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint64
		want float64
	}{
		{"identical", []uint64{1, 2, 3, 4}, []uint64{1, 2, 3, 4}, 0},
		{"half", []uint64{1, 2, 3, 4}, []uint64{1, 2, 0, 0}, 0.5},
		{"disjoint", []uint64{1, 2}, []uint64{3, 4}, 1},
		{"empty", nil, nil, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := JaccardDistance(tc.a, tc.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestJaccardDistance_LengthMismatch(t *testing.T) {
	if _, err := JaccardDistance([]uint64{1}, []uint64{1, 2}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBandDistance(t *testing.T) {
	got, err := BandDistance([]uint64{1, 2, 3, 4}, []uint64{1, 9, 3, 9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.5 {
		t.Errorf("got %f, want 0.5", got)
	}
}

// TestSignatureAgreementConvergesToJaccard checks the statistical contract on
// A={a,b}, B={a,b,c} (J = 2/3) with rows=2, bands=2, modulo=1000003.
func TestSignatureAgreementConvergesToJaccard(t *testing.T) {
	const trials = 3000
	banding := mustBanding(t, 2, 2, 64)
	rng := rand.New(rand.NewPCG(42, 1337))
	docA := set("a", "b")
	docB := set("a", "b", "c")

	var agree, total int
	for range trials {
		seeds := make([]uint64, banding.Hashes())
		for i := range seeds {
			seeds[i] = rng.Uint64()
		}
		s := mustSigner(t, seeds, 1000003, shingle.Word, 64)
		sa, sb := s.Sign(docA), s.Sign(docB)

		dist, err := JaccardDistance(sa, sb)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ba, _ := banding.Bucketize(sa)
		bb, _ := banding.Bucketize(sb)
		for i := range ba {
			if ba[i] == bb[i] && dist >= 1.0 {
				t.Fatalf("documents share band %d but distance is %f", i, dist)
			}
		}

		for i := range sa {
			if sa[i] == sb[i] {
				agree++
			}
			total++
		}
	}

	got := float64(agree) / float64(total)
	if math.Abs(got-2.0/3.0) > 0.03 {
		t.Errorf("agreement rate = %.4f, want ~%.4f", got, 2.0/3.0)
	}
}

func TestFixedSeedsExample(t *testing.T) {
	banding := mustBanding(t, 2, 2, 64)
	s := mustSigner(t, []uint64{1, 2, 3, 4}, 1000003, shingle.Word, 64)
	sa, sb := s.Sign(set("a", "b")), s.Sign(set("a", "b", "c"))

	ba, _ := banding.Bucketize(sa)
	bb, _ := banding.Bucketize(sb)
	dist, _ := JaccardDistance(sa, sb)
	for i := range ba {
		if ba[i] == bb[i] && dist >= 1.0 {
			t.Errorf("shared band %d but distance %f", i, dist)
		}
	}
	if len(sa) != 4 || len(ba) != 2 {
		t.Errorf("unexpected sizes: sig=%d buckets=%d", len(sa), len(ba))
	}
}
