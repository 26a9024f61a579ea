// Package rating converts rating values from their source scales into
// the server's 0-5 integer scale. All transforms are pure functions.
package rating

import "math"

// Kind names a rating transform.
type Kind string

const (
	// TenPointHalved maps a 0-10 scale to 0-5 by halving and rounding.
	TenPointHalved Kind = "tenPointHalved"
	// PercentagePopularity maps a 0-100 popularity value into six buckets.
	PercentagePopularity Kind = "percentagePopularity"
	// Direct truncates the raw value into the 0-5 range.
	Direct Kind = "direct"
)

// ParseKind maps a configured name to a Kind. Unknown names fall back
// to Direct.
func ParseKind(name string) Kind {
	switch Kind(name) {
	case TenPointHalved, PercentagePopularity, Direct:
		return Kind(name)
	default:
		return Direct
	}
}

// popularity bucket lower bounds, highest first. Monotonic and gap-free
// over 0-100.
var popularityBuckets = []struct {
	floor  float64
	rating int
}{
	{90, 5},
	{70, 4},
	{50, 3},
	{30, 2},
	{10, 1},
	{0, 0},
}

// Transform converts a raw rating value of the given kind to the server
// scale. Results are always clamped to [0, 5].
func Transform(kind Kind, raw float64) int {
	switch kind {
	case TenPointHalved:
		return clamp(int(math.Round(raw / 2)))
	case PercentagePopularity:
		for _, bucket := range popularityBuckets {
			if raw >= bucket.floor {
				return bucket.rating
			}
		}
		return 0
	default:
		return clamp(int(raw))
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}
