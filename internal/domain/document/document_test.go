package document

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	rec, err := New("k0001", "docs/a.txt", []uint64{1, 2}, []uint64{5, 6, 7, 8}, 2, 4, 1700)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.DatasetKey() != "k0001" {
		t.Errorf("DatasetKey() = %q", rec.DatasetKey())
	}
	if rec.ID() != "docs/a.txt" {
		t.Errorf("ID() = %q", rec.ID())
	}
	if len(rec.Buckets()) != 2 || rec.Buckets()[1] != 2 {
		t.Errorf("Buckets() = %v", rec.Buckets())
	}
	if !rec.HasSignature() {
		t.Error("HasSignature() = false")
	}
	if rec.CreatedAt() != 1700 {
		t.Errorf("CreatedAt() = %d", rec.CreatedAt())
	}
}

func TestNew_WithoutSignature(t *testing.T) {
	rec, err := New("k0001", "a", []uint64{1, 2}, nil, 2, 4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.HasSignature() {
		t.Error("HasSignature() = true for bucket-only record")
	}
	if rec.Signature() != nil {
		t.Errorf("Signature() = %v, want nil", rec.Signature())
	}
}

func TestNew_ClonesSlices(t *testing.T) {
	buckets := []uint64{1, 2}
	sig := []uint64{3, 4}
	rec, _ := New("k0001", "a", buckets, sig, 2, 2, 0)

	buckets[0] = 99
	sig[0] = 99

	if rec.Buckets()[0] != 1 {
		t.Error("bucket mutation leaked into record")
	}
	if rec.Signature()[0] != 3 {
		t.Error("signature mutation leaked into record")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		id      string
		buckets []uint64
		sig     []uint64
		errSub  string
	}{
		{"empty dataset", "", "a", []uint64{1, 2}, nil, "dataset key"},
		{"empty id", "k0001", "", []uint64{1, 2}, nil, "required"},
		{"reserved id", "k0001", "batch", []uint64{1, 2}, nil, "reserved"},
		{"control char", "k0001", "a\nb", []uint64{1, 2}, nil, "control"},
		{"long id", "k0001", strings.Repeat("x", MaxIDLength+1), []uint64{1, 2}, nil, "too long"},
		{"invalid utf8", "k0001", "a\xffb", []uint64{1, 2}, nil, "UTF-8"},
		{"bucket count", "k0001", "a", []uint64{1}, nil, "buckets"},
		{"signature length", "k0001", "a", []uint64{1, 2}, []uint64{1}, "signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.dataset, tt.id, tt.buckets, tt.sig, 2, 4, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err, tt.errSub)
			}
		})
	}
}

func TestValidateID_AllowsPaths(t *testing.T) {
	for _, id := range []string{"a", "dir/sub/file.go", "with space.txt", "ünïcode"} {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v", id, err)
		}
	}
}

func TestReconstruct(t *testing.T) {
	rec := Reconstruct("k0001", "a", []uint64{1}, []uint64{2, 3}, 42)
	if rec.ID() != "a" || rec.DatasetKey() != "k0001" || rec.CreatedAt() != 42 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !rec.HasSignature() {
		t.Error("HasSignature() = false")
	}
}
