package engine

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestApplyMask(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		mask   []byte
		source []byte
		want   []byte
		ok     bool
	}{
		{
			name:   "empty mask copies data",
			data:   []byte{1, 2, 3},
			mask:   nil,
			source: []byte{9, 9, 9},
			want:   []byte{1, 2, 3},
			ok:     true,
		},
		{
			name:   "wildcard positions take source bytes",
			data:   []byte{1, 2, 3, 4},
			mask:   []byte{0, 0xff, 0, 0xff},
			source: []byte{9, 8, 7, 6},
			want:   []byte{1, 8, 3, 6},
			ok:     true,
		},
		{
			name:   "any nonzero mask byte is a wildcard",
			data:   []byte{1, 2},
			mask:   []byte{0x01, 0},
			source: []byte{9, 9},
			want:   []byte{9, 2},
			ok:     true,
		},
		{
			name:   "mask length mismatch fails",
			data:   []byte{1, 2, 3},
			mask:   []byte{0xff},
			source: []byte{9, 9, 9},
			ok:     false,
		},
		{
			name:   "source length mismatch fails",
			data:   []byte{1, 2, 3},
			mask:   []byte{0, 0, 0},
			source: []byte{9},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ApplyMask(tt.data, tt.mask, tt.source)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !bytes.Equal(got, tt.want) {
				t.Errorf("got %x, want %x", got, tt.want)
			}
		})
	}
}

func TestApplyMaskDoesNotMutateInputs(t *testing.T) {
	data := []byte{1, 2, 3}
	mask := []byte{0xff, 0, 0xff}
	source := []byte{7, 8, 9}

	ApplyMask(data, mask, source)

	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("data mutated: %x", data)
	}
}

func TestTemplatesCompatible(t *testing.T) {
	tests := []struct {
		name     string
		buyData  []byte
		buyMask  []byte
		sellData []byte
		sellMask []byte
		want     bool
	}{
		{
			name:     "identical payloads, no masks",
			buyData:  []byte{1, 2, 3},
			sellData: []byte{1, 2, 3},
			want:     true,
		},
		{
			name:     "different payloads, no masks",
			buyData:  []byte{1, 2, 3},
			sellData: []byte{1, 2, 4},
			want:     false,
		},
		{
			name:     "sell wildcards the differing byte",
			buyData:  []byte{1, 2, 3},
			sellData: []byte{1, 2, 0},
			sellMask: []byte{0, 0, 0xff},
			want:     true,
		},
		{
			name:     "complementary wildcards converge",
			buyData:  []byte{0, 2, 3},
			buyMask:  []byte{0xff, 0, 0},
			sellData: []byte{1, 2, 0},
			sellMask: []byte{0, 0, 0xff},
			want:     true,
		},
		{
			name:     "wildcard on the wrong side does not help",
			buyData:  []byte{1, 2, 3},
			buyMask:  []byte{0, 0, 0xff},
			sellData: []byte{9, 2, 3},
			want:     false,
		},
		{
			name:     "length mismatch",
			buyData:  []byte{1, 2, 3},
			sellData: []byte{1, 2},
			want:     false,
		},
		{
			name:     "bad mask length",
			buyData:  []byte{1, 2, 3},
			buyMask:  []byte{0xff},
			sellData: []byte{1, 2, 3},
			want:     false,
		},
		{
			name: "empty payloads",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TemplatesCompatible(tt.buyData, tt.buyMask, tt.sellData, tt.sellMask)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// A sell mask that wildcards every position where the payloads differ must
// always converge against an exact buy template, and stripping any one of
// those wildcards must break it again.
func TestTemplatesCompatibleRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(128)
		buy := make([]byte, n)
		sell := make([]byte, n)
		rng.Read(buy)
		rng.Read(sell)

		mask := make([]byte, n)
		var diffs []int
		for j := range buy {
			if buy[j] != sell[j] {
				mask[j] = 0xff
				diffs = append(diffs, j)
			}
		}

		if !TemplatesCompatible(buy, nil, sell, mask) {
			t.Fatalf("case %d: covering mask should match", i)
		}

		if len(diffs) > 0 {
			j := diffs[rng.Intn(len(diffs))]
			mask[j] = 0
			if TemplatesCompatible(buy, nil, sell, mask) {
				t.Fatalf("case %d: uncovered difference at %d should not match", i, j)
			}
			mask[j] = 0xff
		}
	}
}

// Swapping the two sides must never change the verdict.
func TestTemplatesCompatibleSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(64)
		a := make([]byte, n)
		b := make([]byte, n)
		am := make([]byte, n)
		bm := make([]byte, n)
		rng.Read(a)
		rng.Read(b)
		for j := range am {
			if rng.Intn(3) == 0 {
				am[j] = 0xff
			}
			if rng.Intn(3) == 0 {
				bm[j] = 0xff
			}
		}

		if TemplatesCompatible(a, am, b, bm) != TemplatesCompatible(b, bm, a, am) {
			t.Fatalf("case %d: asymmetric verdict", i)
		}
	}
}
