// Package analytics turns a day of activities into chart-ready data.
package analytics

import (
	"math"
	"unicode/utf8"

	"github.com/MrSnakeDoc/daylog/internal/catalog"
	"github.com/MrSnakeDoc/daylog/internal/domain"
)

const (
	// MaxLabelLength is where bar labels get cut, before the ellipsis.
	MaxLabelLength = 15
	// HorizontalAbove switches the bar chart to horizontal past this many bars.
	HorizontalAbove = 6

	untitled = "Untitled"
)

// Styler resolves the display entry of a category.
type Styler interface {
	Lookup(domain.Category) catalog.Entry
}

// Summary is domain.Summary plus its rendered forms.
type Summary struct {
	domain.Summary
	TotalFormatted   string `json:"totalFormatted"`
	AverageFormatted string `json:"averageFormatted"`
	TopEmoji         string `json:"topEmoji,omitempty"`
	RemainingMinutes int    `json:"remainingMinutes"`
}

// Slice is one category of the breakdown and of the doughnut chart.
type Slice struct {
	Category  domain.Category `json:"category"`
	Emoji     string          `json:"emoji"`
	Color     string          `json:"color"`
	Minutes   int             `json:"minutes"`
	Formatted string          `json:"formatted"`
	Percent   int             `json:"percent"`
}

// Bar is one activity of the bar chart.
type Bar struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
	Color   string `json:"color"`
}

// Report is the analytics payload of a day.
type Report struct {
	Date       string  `json:"date"`
	Empty      bool    `json:"empty"`
	Summary    Summary `json:"summary"`
	Categories []Slice `json:"categories"`
	Bars       []Bar   `json:"bars"`
	Horizontal bool    `json:"horizontal"`
}

// Build derives the report. Activities keep the order they are given in for the bars.
func Build(date string, activities []domain.Activity, styles Styler) Report {
	sum := domain.Summarize(activities)

	r := Report{
		Date:  date,
		Empty: len(activities) == 0,
		Summary: Summary{
			Summary:          sum,
			TotalFormatted:   domain.FormatDuration(sum.TotalMinutes),
			AverageFormatted: domain.FormatDuration(sum.AverageDuration),
			RemainingMinutes: domain.RemainingMinutes(activities),
		},
		Categories: []Slice{},
		Bars:       make([]Bar, 0, len(activities)),
		Horizontal: len(activities) > HorizontalAbove,
	}
	if sum.TopCategory != "" {
		r.Summary.TopEmoji = styles.Lookup(sum.TopCategory).Emoji
	}

	for _, t := range domain.SortTotals(domain.AggregateByCategory(activities)) {
		e := styles.Lookup(t.Category)
		r.Categories = append(r.Categories, Slice{
			Category:  t.Category,
			Emoji:     e.Emoji,
			Color:     e.Color,
			Minutes:   t.Minutes,
			Formatted: domain.FormatDuration(t.Minutes),
			Percent:   percent(t.Minutes, sum.TotalMinutes),
		})
	}

	for _, a := range activities {
		r.Bars = append(r.Bars, Bar{
			Label:   Label(a.Name),
			Minutes: a.Duration,
			Color:   styles.Lookup(a.Category).Color,
		})
	}
	return r
}

// Label shortens an activity name for a chart axis.
func Label(name string) string {
	if name == "" {
		return untitled
	}
	if utf8.RuneCountInString(name) <= MaxLabelLength {
		return name
	}
	return string([]rune(name)[:MaxLabelLength]) + "..."
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
