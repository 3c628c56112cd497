// Package progress computes completion ratios, streaks and group rankings from
// rows the dashboard queries have already aggregated.
package progress

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"muhasabahAPI/internal/checkin"
	"muhasabahAPI/internal/dashboard"
)

// StreakWindowDays bounds how far back a streak is scanned.
const StreakWindowDays = 30

// RankSize is how many groups appear in each of the top and bottom lists.
const RankSize = 5

// Percent is completed/total as a percentage rounded to one decimal place.
// Zero items means zero percent.
func Percent(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(completed) / float64(total) * 100)
}

// Mean returns the average of values, or 0 when there are none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round1(sum / float64(len(values)))
}

// Streak counts consecutive fully completed days walking back from today.
// A day with no items, or with any incomplete item, ends the streak.
func Streak(days []checkin.DayTotal, today time.Time) int {
	byDate := make(map[string]checkin.DayTotal, len(days))
	for _, d := range days {
		byDate[dayKey(d.Date)] = d
	}

	streak := 0
	for offset := 0; offset < StreakWindowDays; offset++ {
		d, ok := byDate[dayKey(today.AddDate(0, 0, -offset))]
		if !ok || d.Total == 0 || d.Completed < d.Total {
			break
		}
		streak++
	}
	return streak
}

// Groups folds per-member progress into one entry per sitting. A group's
// percent is the mean of its members' percents. names supplies every group to
// report, so groups without members appear with zero progress.
func Groups(members []dashboard.MemberProgress, names map[uuid.UUID]string) []dashboard.GroupProgress {
	percents := make(map[uuid.UUID][]float64, len(names))
	acc := make(map[uuid.UUID]*dashboard.GroupProgress, len(names))
	for id, name := range names {
		acc[id] = &dashboard.GroupProgress{SittingID: id, Name: name}
	}

	for _, m := range members {
		g, ok := acc[m.SittingID]
		if !ok {
			continue
		}
		g.Members++
		g.Completed += m.Completed
		g.Total += m.Total
		percents[m.SittingID] = append(percents[m.SittingID], m.Percent)
	}

	out := make([]dashboard.GroupProgress, 0, len(acc))
	for id, g := range acc {
		g.Percent = Mean(percents[id])
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Rank returns up to RankSize groups with the highest and the lowest progress.
// Ties are broken by name so results are stable.
func Rank(groups []dashboard.GroupProgress) (top, bottom []dashboard.GroupProgress) {
	sorted := make([]dashboard.GroupProgress, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Percent != sorted[j].Percent {
			return sorted[i].Percent > sorted[j].Percent
		}
		return sorted[i].Name < sorted[j].Name
	})

	n := min(RankSize, len(sorted))
	top = append([]dashboard.GroupProgress{}, sorted[:n]...)

	bottom = make([]dashboard.GroupProgress, 0, n)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		bottom = append(bottom, sorted[i])
	}
	return top, bottom
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
