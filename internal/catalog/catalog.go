// Package catalog holds the display metadata of the recognized categories.
package catalog

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/domain"
)

// Entry is how a category is presented: an emoji badge and a chart color.
type Entry struct {
	Name  domain.Category `json:"name" yaml:"name"`
	Emoji string          `json:"emoji" yaml:"emoji"`
	Color string          `json:"color" yaml:"color"`
}

// Defaults returns the built-in entries in canonical order.
func Defaults() []Entry {
	return []Entry{
		{Name: domain.CategoryWork, Emoji: "💼", Color: "#3b82f6"},
		{Name: domain.CategoryStudy, Emoji: "📚", Color: "#8b5cf6"},
		{Name: domain.CategorySleep, Emoji: "😴", Color: "#6366f1"},
		{Name: domain.CategoryEntertainment, Emoji: "🎮", Color: "#ec4899"},
		{Name: domain.CategoryExercise, Emoji: "🏃", Color: "#10b981"},
		{Name: domain.CategoryOthers, Emoji: "📌", Color: "#6b7280"},
	}
}

// Catalog is safe for concurrent use. The set of categories never changes;
// only their emoji and color can be overridden.
type Catalog struct {
	mu       sync.RWMutex
	entries  map[domain.Category]Entry
	source   string
	loadedAt time.Time
}

// New creates a catalog holding the built-in entries.
func New() *Catalog {
	c := &Catalog{}
	c.reset()
	return c
}

func (c *Catalog) reset() {
	c.entries = make(map[domain.Category]Entry, len(domain.Categories))
	for _, e := range Defaults() {
		c.entries[e.Name] = e
	}
	c.source = "builtin"
	c.loadedAt = time.Now()
}

// Lookup returns the entry of c. Unknown categories resolve to Others.
func (c *Catalog) Lookup(cat domain.Category) Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cat.Normalize()]
	if !ok {
		return c.entries[domain.CategoryOthers]
	}
	return e
}

// Entries returns every entry in canonical order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		out = append(out, c.entries[cat])
	}
	return out
}

// Apply resets the catalog to the built-in entries, then overlays overrides.
// Empty emoji or color fields keep the built-in value.
func (c *Catalog) Apply(source string, overrides []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	for _, o := range overrides {
		e, ok := c.entries[o.Name]
		if !ok {
			continue
		}
		if o.Emoji != "" {
			e.Emoji = o.Emoji
		}
		if o.Color != "" {
			e.Color = o.Color
		}
		c.entries[o.Name] = e
	}
	c.source = source
}

// Stats reports where the entries came from and when they were loaded.
func (c *Catalog) Stats() (source string, loadedAt time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source, c.loadedAt
}
