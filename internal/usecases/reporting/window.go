package reporting

import (
	"sort"
	"time"

	"github.com/shopsight/churn-report/internal/domain"
)

// TodayWindow returns the half-open window [start, start+24h) covering the
// civil day of now in loc.
func TodayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour)
}

// CountAboveThreshold counts, per group, the predictions of one shop inside
// the window whose churn probability strictly exceeds the threshold. Groups
// without any qualifying row are absent from the result. The result is sorted
// by group number ascending.
func CountAboveThreshold(
	predictions []domain.Prediction,
	shopID int64,
	threshold float64,
	start, end time.Time,
) []domain.GroupCount {
	byGroup := make(map[int64]int)

	for _, p := range predictions {
		if p.ShopID != shopID {
			continue
		}
		// lower bound inclusive, upper bound exclusive
		if p.RunDate.Before(start) || !p.RunDate.Before(end) {
			continue
		}
		if p.ProbaChurn > threshold {
			byGroup[p.GroupNumber]++
		}
	}

	counts := make([]domain.GroupCount, 0, len(byGroup))
	for group, count := range byGroup {
		counts = append(counts, domain.GroupCount{GroupNumber: group, Count: count})
	}

	sort.Slice(counts, func(i, j int) bool {
		return counts[i].GroupNumber < counts[j].GroupNumber
	})

	return counts
}
