package domain

import "math"

// DefaultBucketWidth is the default trade grouping interval in seconds.
const DefaultBucketWidth = 600

// PriceBucket is one fixed-width time bucket of trades for a pair.
// Price is the volume-weighted average of the contributing trades and
// Time is the bucket midpoint. Buckets are derived state: they are
// recomputed from raw trades on read, and the archive rows written to
// ClickHouse can be rebuilt at any time.
type PriceBucket struct {
	Pair      string
	TimeClass int64   // floor(trade time / bucket width)
	Time      float64 // bucket midpoint, (TimeClass + 0.5) * width
	Price     float64 // volume-weighted average price
	Volume    float64 // summed trade amount
}

// TimeClassOf maps a trade timestamp to its bucket index.
func TimeClassOf(time, bucketWidth float64) int64 {
	return int64(math.Floor(time / bucketWidth))
}
