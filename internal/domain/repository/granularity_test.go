package repository

import "testing"

func TestNormalizeGranularity(t *testing.T) {
	cases := []struct {
		in   string
		want Granularity
	}{
		{"", GRaw},
		{"raw", GRaw},
		{"1h", G1h},
		{"1d", G1d},
		{"5m", GRaw},
		{"bogus", GRaw},
	}
	for _, c := range cases {
		if got := NormalizeGranularity(c.in); got != c.want {
			t.Errorf("NormalizeGranularity(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsValidGranularity(t *testing.T) {
	if !IsValidGranularity(G1h) {
		t.Error("1h should be valid")
	}
	if IsValidGranularity(Granularity("2h")) {
		t.Error("2h should not be valid")
	}
}
