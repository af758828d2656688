package pagination

import "testing"

func TestNormalizeClampsLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in, 0).Limit; got != tc.want {
			t.Fatalf("Normalize(%d, 0).Limit = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeClampsOffset(t *testing.T) {
	if got := Normalize(10, -1).Offset; got != 0 {
		t.Fatalf("negative offset should clamp to 0, got %d", got)
	}
	if got := Normalize(10, MaxOffset+1).Offset; got != MaxOffset {
		t.Fatalf("oversized offset should clamp to %d, got %d", MaxOffset, got)
	}
	if got := Normalize(10, 75).Offset; got != 75 {
		t.Fatalf("in-range offset should pass through, got %d", got)
	}
}
