package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

// entry keeps the creation sequence next to the activity so ties on
// CreatedAt still list newest first.
type entry struct {
	activity domain.Activity
	seq      uint64
}

// Store keeps activities and profiles in process memory.
// Subscriptions only observe writes made through the same Store.
type Store struct {
	mu       sync.RWMutex
	days     map[string]map[string]*entry // Day.Key() -> ID -> entry
	dates    map[string]string            // Day.Key() -> date, for pruning
	profiles map[string]domain.Profile    // UserID -> Profile
	seq      uint64
	hub      *store.Hub
	now      func() time.Time
	newID    func() string
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		days:     make(map[string]map[string]*entry),
		dates:    make(map[string]string),
		profiles: make(map[string]domain.Profile),
		hub:      store.NewHub(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Name identifies the backend in logs and /infra.
func (s *Store) Name() string { return "memory" }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// List returns a snapshot of the day, newest first.
func (s *Store) List(_ context.Context, day domain.Day) ([]domain.Activity, error) {
	if !day.Authenticated() {
		return []domain.Activity{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(day), nil
}

func (s *Store) listLocked(day domain.Day) []domain.Activity {
	entries := s.days[day.Key()]
	sorted := make([]*entry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].seq > sorted[j].seq })

	out := make([]domain.Activity, len(sorted))
	for i, e := range sorted {
		out[i] = e.activity
	}
	return out
}

// Add stores a new activity and returns its generated ID.
func (s *Store) Add(_ context.Context, day domain.Day, in domain.ActivityInput) (string, error) {
	if !day.Authenticated() {
		return "", store.ErrUnauthenticated
	}

	s.mu.Lock()
	id := s.addLocked(day, in)
	s.mu.Unlock()

	s.hub.Notify(day.Key())
	return id, nil
}

func (s *Store) addLocked(day domain.Day, in domain.ActivityInput) string {
	key := day.Key()
	entries, ok := s.days[key]
	if !ok {
		entries = make(map[string]*entry)
		s.days[key] = entries
		s.dates[key] = day.Date
	}

	s.seq++
	id := s.newID()
	entries[id] = &entry{
		activity: domain.Activity{
			ID:        id,
			Name:      in.Name,
			Category:  in.Category,
			Duration:  in.Duration,
			CreatedAt: s.now(),
		},
		seq: s.seq,
	}
	return id
}

// Update replaces name, category and duration of an existing activity.
func (s *Store) Update(_ context.Context, day domain.Day, id string, in domain.ActivityInput) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	s.mu.Lock()
	err := s.updateLocked(day, id, in)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.hub.Notify(day.Key())
	return nil
}

func (s *Store) updateLocked(day domain.Day, id string, in domain.ActivityInput) error {
	e, ok := s.days[day.Key()][id]
	if !ok {
		return store.ErrNotFound
	}
	e.activity.Name = in.Name
	e.activity.Category = in.Category
	e.activity.Duration = in.Duration
	e.activity.UpdatedAt = s.now()
	return nil
}

// Remove deletes an activity; unknown IDs are ignored.
func (s *Store) Remove(_ context.Context, day domain.Day, id string) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	key := day.Key()
	s.mu.Lock()
	entries, ok := s.days[key]
	_, found := entries[id]
	if ok && found {
		delete(entries, id)
		if len(entries) == 0 {
			delete(s.days, key)
			delete(s.dates, key)
		}
	}
	s.mu.Unlock()

	if found {
		s.hub.Notify(key)
	}
	return nil
}

// Subscribe watches the day through the in-process hub.
func (s *Store) Subscribe(ctx context.Context, day domain.Day, onChange func([]domain.Activity)) (*store.Subscription, error) {
	if !day.Authenticated() {
		return store.Static(ctx, onChange), nil
	}

	changes, release := s.hub.Listen(day.Key())
	return store.Watch(ctx, store.Feed{
		Load:    func(ctx context.Context) ([]domain.Activity, error) { return s.List(ctx, day) },
		Changes: changes,
		Release: release,
	}, onChange)
}

// AddWithinBudget adds the activity only if the day total stays within limit.
func (s *Store) AddWithinBudget(_ context.Context, day domain.Day, in domain.ActivityInput, limit int) (string, error) {
	if !day.Authenticated() {
		return "", store.ErrUnauthenticated
	}

	s.mu.Lock()
	if s.totalLocked(day, "")+in.Duration > limit {
		s.mu.Unlock()
		return "", store.ErrBudgetExceeded
	}
	id := s.addLocked(day, in)
	s.mu.Unlock()

	s.hub.Notify(day.Key())
	return id, nil
}

// UpdateWithinBudget replaces the activity only if the day total stays within limit.
func (s *Store) UpdateWithinBudget(_ context.Context, day domain.Day, id string, in domain.ActivityInput, limit int) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	s.mu.Lock()
	if _, ok := s.days[day.Key()][id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	if s.totalLocked(day, id)+in.Duration > limit {
		s.mu.Unlock()
		return store.ErrBudgetExceeded
	}
	err := s.updateLocked(day, id, in)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.hub.Notify(day.Key())
	return nil
}

// totalLocked sums the day, leaving out the activity with ID skip.
func (s *Store) totalLocked(day domain.Day, skip string) int {
	total := 0
	for id, e := range s.days[day.Key()] {
		if id != skip {
			total += e.activity.Duration
		}
	}
	return total
}

// PruneBefore drops every day dated before cutoff and returns how many activities went with them.
func (s *Store) PruneBefore(_ context.Context, cutoff string) (int, error) {
	var notified []string

	s.mu.Lock()
	deleted := 0
	for key, date := range s.dates {
		if date >= cutoff {
			continue
		}
		deleted += len(s.days[key])
		delete(s.days, key)
		delete(s.dates, key)
		notified = append(notified, key)
	}
	s.mu.Unlock()

	for _, key := range notified {
		s.hub.Notify(key)
	}
	return deleted, nil
}

// GetProfile returns the stored profile or store.ErrNotFound.
func (s *Store) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, store.ErrUnauthenticated
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, store.ErrNotFound
	}
	return p, nil
}

// SaveProfile merges p into the stored profile.
func (s *Store) SaveProfile(_ context.Context, p domain.Profile) error {
	if p.UserID == "" {
		return store.ErrUnauthenticated
	}
	p.UpdatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = s.profiles[p.UserID].Merge(p)
	return nil
}
