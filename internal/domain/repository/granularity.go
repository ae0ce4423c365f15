package repository

// Granularity represents snapshot history resolution buckets.
type Granularity string

const (
	GRaw Granularity = "raw"
	G1h  Granularity = "1h"
	G1d  Granularity = "1d"
)

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	switch g {
	case GRaw, G1h, G1d:
		return true
	default:
		return false
	}
}

// DefaultGranularity returns the default granularity.
func DefaultGranularity() Granularity { return GRaw }

// NormalizeGranularity converts raw string to a valid granularity (or default).
func NormalizeGranularity(s string) Granularity {
	if s == "" {
		return DefaultGranularity()
	}
	g := Granularity(s)
	if IsValidGranularity(g) {
		return g
	}
	return DefaultGranularity()
}
