package domain

// Category classifies an activity.
type Category string

const (
	CategoryWork          Category = "Work"
	CategoryStudy         Category = "Study"
	CategorySleep         Category = "Sleep"
	CategoryEntertainment Category = "Entertainment"
	CategoryExercise      Category = "Exercise"
	CategoryOthers        Category = "Others"
)

// Categories lists the recognized categories in canonical display order.
var Categories = []Category{
	CategoryWork,
	CategoryStudy,
	CategorySleep,
	CategoryEntertainment,
	CategoryExercise,
	CategoryOthers,
}

// Known reports whether c belongs to the recognized set.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Normalize maps unknown or empty categories to Others for display.
func (c Category) Normalize() Category {
	if c.Known() {
		return c
	}
	return CategoryOthers
}

// rank is the position of c in Categories, or len(Categories) when unknown.
func (c Category) rank() int {
	for i, k := range Categories {
		if c == k {
			return i
		}
	}
	return len(Categories)
}
