package tracker

import "github.com/MrSnakeDoc/daylog/internal/domain"

// View is an immutable snapshot of a day. Callers load one, validate against
// it and hand it back for the write; nothing is cached between requests.
type View struct {
	Day        domain.Day
	Activities []domain.Activity
	Remaining  int
	Summary    domain.Summary
	Totals     []domain.CategoryTotal
}

// NewView derives the aggregates of activities. The slice is copied.
func NewView(day domain.Day, activities []domain.Activity) View {
	acts := make([]domain.Activity, len(activities))
	copy(acts, activities)

	return View{
		Day:        day,
		Activities: acts,
		Remaining:  domain.RemainingMinutes(acts),
		Summary:    domain.Summarize(acts),
		Totals:     domain.SortTotals(domain.AggregateByCategory(acts)),
	}
}

// Find returns the activity with the given id.
func (v View) Find(id string) (domain.Activity, bool) {
	for _, a := range v.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Activity{}, false
}
