package insight

import (
	"math"
	"sort"
	"time"

	"github.com/fintrackhq/fintrack/internal/fintrack"
)

// MonthKey renders the bucket key for an effective date, e.g. "2026-03".
// All bucketing goes through one location so a record never straddles two
// months depending on who asks.
func MonthKey(epochMillis int64, loc *time.Location) string {
	return time.UnixMilli(epochMillis).In(loc).Format("2006-01")
}

// GroupByMonth buckets records by the month of their effective date.
func GroupByMonth[T fintrack.Record](records []T, loc *time.Location) map[string][]T {
	out := make(map[string][]T)
	for _, r := range records {
		k := MonthKey(r.EffectiveAt(), loc)
		out[k] = append(out[k], r)
	}
	return out
}

// SumMinor totals record amounts in minor units. Integer arithmetic only.
func SumMinor[T fintrack.Record](records []T) int64 {
	var sum int64
	for _, r := range records {
		sum += r.Amount()
	}
	return sum
}

// Variation is the percent change from previous to current, rounded to one
// decimal. A zero previous yields 0 rather than a division blow-up.
func Variation(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	pct := (float64(current) - float64(previous)) / float64(previous) * 100
	return math.Round(pct*10) / 10
}

// TopCategory returns the category with the largest summed amount. Ties go
// to the first category in ascending code order so the answer is stable.
// An empty input reports OTHER with a zero sum.
func TopCategory[T fintrack.Record](records []T) (string, int64) {
	if len(records) == 0 {
		return string(fintrack.ExpenseCategoryOther), 0
	}
	sums := make(map[string]int64)
	for _, r := range records {
		sums[r.CategoryCode()] += r.Amount()
	}
	codes := make([]string, 0, len(sums))
	for c := range sums {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	top, topSum := codes[0], sums[codes[0]]
	for _, c := range codes[1:] {
		if sums[c] > topSum {
			top, topSum = c, sums[c]
		}
	}
	return top, topSum
}

// sortedMonthKeys returns the bucket keys in ascending order. The "2006-01"
// format sorts lexicographically in time order.
func sortedMonthKeys[T fintrack.Record](buckets map[string][]T) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
