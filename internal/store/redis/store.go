package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

// maxTxRetries bounds optimistic WATCH/MULTI retries on concurrent writes
const maxTxRetries = 8

// noLimit disables the budget check in writeTx
const noLimit = -1

// Store keeps activities and profiles in Redis and announces writes on a
// per-day pub/sub channel, so subscribers on other instances see them too.
type Store struct {
	client *redis.Client
	log    logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, log logger.Logger) *Store {
	return &Store{
		client: client,
		log:    log,
		now:    time.Now,
		newID:  newTimeOrderedID,
	}
}

// newTimeOrderedID returns a UUIDv7. Ids created within the same millisecond
// still sort in creation order, which breaks ties in the order set.
func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Name identifies the backend in logs and /infra
func (s *Store) Name() string { return "redis" }

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return store.Unavailable("ping", s.client.Ping(ctx).Err())
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// List returns the activities of a day, newest first
func (s *Store) List(ctx context.Context, day domain.Day) ([]domain.Activity, error) {
	if !day.Authenticated() {
		return []domain.Activity{}, nil
	}

	ids, err := s.client.ZRevRange(ctx, OrderKey(day), 0, -1).Result()
	if err != nil {
		return nil, store.Unavailable("list activities", err)
	}
	if len(ids) == 0 {
		return []domain.Activity{}, nil
	}

	values, err := s.client.HMGet(ctx, ActivitiesKey(day), ids...).Result()
	if err != nil {
		return nil, store.Unavailable("list activities", err)
	}

	acts := make([]domain.Activity, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Removed between ZREVRANGE and HMGET
			continue
		}
		var a domain.Activity
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			s.log.Warn("skipping unreadable activity",
				logger.String("day", day.Key()),
				logger.String("id", ids[i]),
				logger.Error(err))
			continue
		}
		acts = append(acts, a)
	}
	return acts, nil
}

// Add stores a new activity and returns its id
func (s *Store) Add(ctx context.Context, day domain.Day, in domain.ActivityInput) (string, error) {
	return s.AddWithinBudget(ctx, day, in, noLimit)
}

// Update replaces name, category and duration of an existing activity
func (s *Store) Update(ctx context.Context, day domain.Day, id string, in domain.ActivityInput) error {
	return s.UpdateWithinBudget(ctx, day, id, in, noLimit)
}

// AddWithinBudget adds the activity only if the day total stays within limit
func (s *Store) AddWithinBudget(ctx context.Context, day domain.Day, in domain.ActivityInput, limit int) (string, error) {
	if !day.Authenticated() {
		return "", store.ErrUnauthenticated
	}

	id := s.newID()
	err := s.writeTx(ctx, day, limit, func(existing map[string]domain.Activity) (*domain.Activity, error) {
		return &domain.Activity{
			ID:        id,
			Name:      in.Name,
			Category:  in.Category,
			Duration:  in.Duration,
			CreatedAt: s.now(),
		}, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateWithinBudget replaces the activity only if the day total stays within limit
func (s *Store) UpdateWithinBudget(ctx context.Context, day domain.Day, id string, in domain.ActivityInput, limit int) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	return s.writeTx(ctx, day, limit, func(existing map[string]domain.Activity) (*domain.Activity, error) {
		a, ok := existing[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		a.Name = in.Name
		a.Category = in.Category
		a.Duration = in.Duration
		a.UpdatedAt = s.now()
		return &a, nil
	})
}

// writeTx reads the day under WATCH, lets build produce the activity to
// write, checks the budget when limit >= 0, and commits in MULTI/EXEC.
// The change is published once the transaction succeeds.
func (s *Store) writeTx(ctx context.Context, day domain.Day, limit int, build func(map[string]domain.Activity) (*domain.Activity, error)) error {
	key := ActivitiesKey(day)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		existing := decodeAll(raw)

		next, err := build(existing)
		if err != nil {
			return err
		}

		if limit >= 0 {
			total := next.Duration
			for id, a := range existing {
				if id != next.ID {
					total += a.Duration
				}
			}
			if total > limit {
				return store.ErrBudgetExceeded
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal activity: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, next.ID, data)
			pipe.ZAdd(ctx, OrderKey(day), redis.Z{
				Score:  float64(next.CreatedAt.UnixMilli()),
				Member: next.ID,
			})
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			s.publish(ctx, day)
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrBudgetExceeded):
			return err
		default:
			return store.Unavailable("write activity", err)
		}
	}
	return store.Unavailable("write activity", redis.TxFailedErr)
}

// decodeAll parses every value of an activities hash, skipping unreadable ones
func decodeAll(raw map[string]string) map[string]domain.Activity {
	out := make(map[string]domain.Activity, len(raw))
	for id, v := range raw {
		var a domain.Activity
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			continue
		}
		out[id] = a
	}
	return out
}

// Remove deletes an activity; unknown ids are ignored
func (s *Store) Remove(ctx context.Context, day domain.Day, id string) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	var removed *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, ActivitiesKey(day), id)
		pipe.ZRem(ctx, OrderKey(day), id)
		return nil
	})
	if err != nil {
		return store.Unavailable("remove activity", err)
	}

	if removed.Val() > 0 {
		s.publish(ctx, day)
	}
	return nil
}

// publish announces a write. The write already succeeded, so a failure here
// is logged and not returned.
func (s *Store) publish(ctx context.Context, day domain.Day) {
	if err := s.client.Publish(ctx, ChangesChannel(day), day.Date).Err(); err != nil {
		s.log.Warn("failed to publish change",
			logger.String("day", day.Key()),
			logger.Error(err))
	}
}

// Subscribe listens on the day's channel and reloads the list on every message
func (s *Store) Subscribe(ctx context.Context, day domain.Day, onChange func([]domain.Activity)) (*store.Subscription, error) {
	if !day.Authenticated() {
		return store.Static(ctx, onChange), nil
	}

	pubsub := s.client.Subscribe(ctx, ChangesChannel(day))
	// Wait for the confirmation so no write slips between the first load and the subscription
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, store.Unavailable("subscribe", err)
	}

	return store.Watch(ctx, store.Feed{
		Load:    func(ctx context.Context) ([]domain.Activity, error) { return s.List(ctx, day) },
		Changes: coalesce(pubsub.Channel()),
		Release: func() { _ = pubsub.Close() },
		OnError: func(err error) {
			s.log.Warn("activity feed reload failed",
				logger.String("day", day.Key()),
				logger.Error(err))
		},
	}, onChange)
}

// coalesce turns pub/sub messages into change signals. A burst of messages
// collapses into one pending signal. The output closes with the input.
func coalesce(msgs <-chan *redis.Message) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range msgs {
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}

// PruneBefore deletes every day dated before cutoff and returns how many activities went with them
func (s *Store) PruneBefore(ctx context.Context, cutoff string) (int, error) {
	deleted := 0

	iter := s.client.Scan(ctx, 0, OrderKeyPattern(), 0).Iterator()
	for iter.Next(ctx) {
		day, err := ParseOrderKey(iter.Val())
		if err != nil {
			s.log.Warn("skipping unexpected key", logger.String("key", iter.Val()))
			continue
		}
		if day.Date >= cutoff {
			continue
		}

		var count *redis.IntCmd
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			count = pipe.HLen(ctx, ActivitiesKey(day))
			pipe.Del(ctx, ActivitiesKey(day), OrderKey(day))
			return nil
		})
		if err != nil {
			return deleted, store.Unavailable("prune", err)
		}
		deleted += int(count.Val())
		s.publish(ctx, day)
	}
	if err := iter.Err(); err != nil {
		return deleted, store.Unavailable("prune", err)
	}
	return deleted, nil
}
