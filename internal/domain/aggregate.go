package domain

import (
	"fmt"
	"math"
	"sort"
)

// CategoryTotals maps a category to the minutes spent on it. Never persisted.
type CategoryTotals map[Category]int

// CategoryTotal is one entry of a sorted breakdown.
type CategoryTotal struct {
	Category Category `json:"category"`
	Minutes  int      `json:"minutes"`
}

// Summary holds the per-day statistics shown next to the activity list.
type Summary struct {
	TotalMinutes    int      `json:"totalMinutes"`
	Count           int      `json:"count"`
	TopCategory     Category `json:"topCategory"`
	AverageDuration int      `json:"averageDuration"`
}

// TotalMinutes sums the durations of activities.
func TotalMinutes(activities []Activity) int {
	total := 0
	for _, a := range activities {
		total += a.Duration
	}
	return total
}

// RemainingMinutes is the day budget minus everything already committed.
// A negative result means the day is over budget and is returned as is.
func RemainingMinutes(activities []Activity) int {
	return MaxDayMinutes - TotalMinutes(activities)
}

// AggregateByCategory sums durations per category. An empty category counts as Others.
func AggregateByCategory(activities []Activity) CategoryTotals {
	totals := make(CategoryTotals, len(Categories))
	for _, a := range activities {
		totals[groupOf(a)] += a.Duration
	}
	return totals
}

// Summarize computes the day statistics. Ties for the top category go to the
// category encountered first in input order.
func Summarize(activities []Activity) Summary {
	s := Summary{Count: len(activities)}
	if s.Count == 0 {
		return s
	}

	totals := make(CategoryTotals, len(Categories))
	order := make([]Category, 0, len(Categories))
	for _, a := range activities {
		c := groupOf(a)
		if _, seen := totals[c]; !seen {
			order = append(order, c)
		}
		totals[c] += a.Duration
		s.TotalMinutes += a.Duration
	}

	best := -1
	for _, c := range order {
		if totals[c] > best {
			best = totals[c]
			s.TopCategory = c
		}
	}

	s.AverageDuration = int(math.Round(float64(s.TotalMinutes) / float64(s.Count)))
	return s
}

// SortTotals orders a breakdown by descending minutes, then canonical category order.
func SortTotals(totals CategoryTotals) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(totals))
	for c, m := range totals {
		out = append(out, CategoryTotal{Category: c, Minutes: m})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		ri, rj := out[i].Category.rank(), out[j].Category.rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// FormatDuration renders minutes as "45m", "2h" or "1h 30m".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func groupOf(a Activity) Category {
	if a.Category == "" {
		return CategoryOthers
	}
	return a.Category
}
