package redis

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/daylog/internal/domain"
)

const (
	// KeyPrefixDay is the prefix shared by every per-day key
	KeyPrefixDay = "daylog:day:"
	// KeyPrefixUser is the prefix for profile hashes
	KeyPrefixUser = "daylog:user:"
	// KeyPrefixChanges is the prefix for per-day pub/sub channels
	KeyPrefixChanges = "daylog:changes:"

	suffixActivities = ":activities"
	suffixOrder      = ":order"
)

// ActivitiesKey returns the hash holding id -> JSON activity for a day
func ActivitiesKey(day domain.Day) string {
	return KeyPrefixDay + day.UserID + ":" + day.Date + suffixActivities
}

// OrderKey returns the sorted set of activity ids scored by creation time (ms)
func OrderKey(day domain.Day) string {
	return KeyPrefixDay + day.UserID + ":" + day.Date + suffixOrder
}

// ProfileKey returns the profile hash of a user
func ProfileKey(userID string) string {
	return KeyPrefixUser + userID
}

// ChangesChannel returns the channel a write to day is announced on
func ChangesChannel(day domain.Day) string {
	return KeyPrefixChanges + day.UserID + ":" + day.Date
}

// OrderKeyPattern matches every order key, for SCAN
func OrderKeyPattern() string {
	return KeyPrefixDay + "*" + suffixOrder
}

// ParseOrderKey extracts the day from an order key.
// The date is always the last segment, so user ids may contain ':'.
func ParseOrderKey(key string) (domain.Day, error) {
	if !strings.HasPrefix(key, KeyPrefixDay) || !strings.HasSuffix(key, suffixOrder) {
		return domain.Day{}, fmt.Errorf("invalid order key: %s", key)
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(key, KeyPrefixDay), suffixOrder)

	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return domain.Day{}, fmt.Errorf("invalid order key: %s", key)
	}
	day, err := domain.NewDay(rest[:i], rest[i+1:])
	if err != nil {
		return domain.Day{}, fmt.Errorf("invalid order key %s: %w", key, err)
	}
	return day, nil
}
