package redis

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

const (
	fieldName      = "name"
	fieldEmail     = "email"
	fieldPhotoURL  = "photo_url"
	fieldUpdatedAt = "updated_at"
)

// GetProfile reads the profile hash of a user
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, store.ErrUnauthenticated
	}

	fields, err := s.client.HGetAll(ctx, ProfileKey(userID)).Result()
	if err != nil {
		return domain.Profile{}, store.Unavailable("get profile", err)
	}
	if len(fields) == 0 {
		return domain.Profile{}, store.ErrNotFound
	}

	p := domain.Profile{
		UserID:   userID,
		Name:     fields[fieldName],
		Email:    fields[fieldEmail],
		PhotoURL: fields[fieldPhotoURL],
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err == nil {
		p.UpdatedAt = ts
	}
	return p, nil
}

// SaveProfile writes only the non-empty fields, which merges into the existing hash
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	if p.UserID == "" {
		return store.ErrUnauthenticated
	}

	values := map[string]any{
		fieldUpdatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	if p.Name != "" {
		values[fieldName] = p.Name
	}
	if p.Email != "" {
		values[fieldEmail] = p.Email
	}
	if p.PhotoURL != "" {
		values[fieldPhotoURL] = p.PhotoURL
	}

	if err := s.client.HSet(ctx, ProfileKey(p.UserID), values).Err(); err != nil {
		return store.Unavailable("save profile", err)
	}
	return nil
}
