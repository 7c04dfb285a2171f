package domain

import "sort"

// Trade is a single executed trade observed on an exchange feed.
// Time is Unix seconds and may carry sub-second precision.
// Trades are write-once; the uniqueness key within a pair is
// (price, amount, time).
type Trade struct {
	Price  float64 // unit price, > 0
	Amount float64 // traded amount, > 0
	Time   float64 // Unix seconds
}

// MergeTrades sorts trades ascending by time and collapses adjacent rows
// that share both price and time by summing their amounts. Exchange feeds
// frequently report partial fills of one order as separate trades with
// identical price and timestamp; stored as-is they would collide on the
// uniqueness key and lose volume.
//
// The input slice is not modified.
func MergeTrades(trades []Trade) []Trade {
	if len(trades) == 0 {
		return nil
	}

	sorted := make([]Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	merged := make([]Trade, 0, len(sorted))
	current := sorted[0]
	for _, t := range sorted[1:] {
		if t.Price == current.Price && t.Time == current.Time {
			current.Amount += t.Amount
			continue
		}
		merged = append(merged, current)
		current = t
	}
	merged = append(merged, current)

	return merged
}
