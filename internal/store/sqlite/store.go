// Package sqlite is the single-file activity store, backed by modernc.org/sqlite.
// Change notifications are in-process only: subscribers see writes made
// through the same Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/daylog/internal/domain"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/store"
)

const driverName = "sqlite"

// noLimit disables the budget check in the guarded writes
const noLimit = -1

// dbtx is the part of *sql.DB and *sql.Conn the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists activities and profiles in a SQLite file.
type Store struct {
	db    *sql.DB
	hub   *store.Hub
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// DSN builds the connection string for path with the pragmas the store relies on.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open creates the parent directory, opens the database and runs migrations.
func Open(path string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(path)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; also serializes the sequence counter.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("sqlite store ready", logger.String("path", path))

	return &Store{
		db:    db,
		hub:   store.NewHub(),
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// Name identifies the backend in logs and /infra
func (s *Store) Name() string { return "sqlite" }

// Ping checks the database handle
func (s *Store) Ping(ctx context.Context) error {
	return store.Unavailable("ping", s.db.PingContext(ctx))
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the activities of a day, newest first
func (s *Store) List(ctx context.Context, day domain.Day) ([]domain.Activity, error) {
	if !day.Authenticated() {
		return []domain.Activity{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, duration, created_at, updated_at
		FROM activities
		WHERE user_id = ? AND day = ?
		ORDER BY seq DESC`, day.UserID, day.Date)
	if err != nil {
		return nil, store.Unavailable("list activities", err)
	}
	defer rows.Close()

	acts := []domain.Activity{}
	for rows.Next() {
		var (
			a         domain.Activity
			category  string
			createdAt string
			updatedAt sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &category, &a.Duration, &createdAt, &updatedAt); err != nil {
			return nil, store.Unavailable("scan activity", err)
		}
		a.Category = domain.Category(category)
		a.CreatedAt = parseTime(createdAt)
		if updatedAt.Valid {
			a.UpdatedAt = parseTime(updatedAt.String)
		}
		acts = append(acts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable("list activities", err)
	}
	return acts, nil
}

// Add stores a new activity and returns its id
func (s *Store) Add(ctx context.Context, day domain.Day, in domain.ActivityInput) (string, error) {
	if !day.Authenticated() {
		return "", store.ErrUnauthenticated
	}

	id, err := s.insert(ctx, s.db, day, in)
	if err != nil {
		return "", err
	}
	s.hub.Notify(day.Key())
	return id, nil
}

func (s *Store) insert(ctx context.Context, q dbtx, day domain.Day, in domain.ActivityInput) (string, error) {
	id := s.newID()
	_, err := q.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, day, name, category, duration, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM activities))`,
		id, day.UserID, day.Date, in.Name, string(in.Category), in.Duration, formatTime(s.now()))
	if err != nil {
		return "", store.Unavailable("insert activity", err)
	}
	return id, nil
}

// Update replaces name, category and duration of an existing activity
func (s *Store) Update(ctx context.Context, day domain.Day, id string, in domain.ActivityInput) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	if err := s.update(ctx, s.db, day, id, in); err != nil {
		return err
	}
	s.hub.Notify(day.Key())
	return nil
}

func (s *Store) update(ctx context.Context, q dbtx, day domain.Day, id string, in domain.ActivityInput) error {
	res, err := q.ExecContext(ctx, `
		UPDATE activities
		SET name = ?, category = ?, duration = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND day = ?`,
		in.Name, string(in.Category), in.Duration, formatTime(s.now()), id, day.UserID, day.Date)
	if err != nil {
		return store.Unavailable("update activity", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("update activity", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Remove deletes an activity; unknown ids are ignored
func (s *Store) Remove(ctx context.Context, day domain.Day, id string) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM activities WHERE id = ? AND user_id = ? AND day = ?`,
		id, day.UserID, day.Date)
	if err != nil {
		return store.Unavailable("remove activity", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.Notify(day.Key())
	}
	return nil
}

// Subscribe watches the day through the in-process hub
func (s *Store) Subscribe(ctx context.Context, day domain.Day, onChange func([]domain.Activity)) (*store.Subscription, error) {
	if !day.Authenticated() {
		return store.Static(ctx, onChange), nil
	}

	changes, release := s.hub.Listen(day.Key())
	return store.Watch(ctx, store.Feed{
		Load:    func(ctx context.Context) ([]domain.Activity, error) { return s.List(ctx, day) },
		Changes: changes,
		Release: release,
		OnError: func(err error) {
			s.log.Warn("activity feed reload failed",
				logger.String("day", day.Key()),
				logger.Error(err))
		},
	}, onChange)
}

// AddWithinBudget adds the activity only if the day total stays within limit
func (s *Store) AddWithinBudget(ctx context.Context, day domain.Day, in domain.ActivityInput, limit int) (string, error) {
	if !day.Authenticated() {
		return "", store.ErrUnauthenticated
	}

	var id string
	err := s.immediate(ctx, func(conn *sql.Conn) error {
		if err := checkBudget(ctx, conn, day, "", in.Duration, limit); err != nil {
			return err
		}
		var err error
		id, err = s.insert(ctx, conn, day, in)
		return err
	})
	if err != nil {
		return "", err
	}
	s.hub.Notify(day.Key())
	return id, nil
}

// UpdateWithinBudget replaces the activity only if the day total stays within limit
func (s *Store) UpdateWithinBudget(ctx context.Context, day domain.Day, id string, in domain.ActivityInput, limit int) error {
	if !day.Authenticated() {
		return store.ErrUnauthenticated
	}

	err := s.immediate(ctx, func(conn *sql.Conn) error {
		var exists int
		err := conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM activities WHERE id = ? AND user_id = ? AND day = ?`,
			id, day.UserID, day.Date).Scan(&exists)
		if err != nil {
			return store.Unavailable("read activity", err)
		}
		if exists == 0 {
			return store.ErrNotFound
		}
		if err := checkBudget(ctx, conn, day, id, in.Duration, limit); err != nil {
			return err
		}
		return s.update(ctx, conn, day, id, in)
	})
	if err != nil {
		return err
	}
	s.hub.Notify(day.Key())
	return nil
}

// immediate runs fn inside BEGIN IMMEDIATE, so the budget read and the write
// happen under the database write lock.
func (s *Store) immediate(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return store.Unavailable("acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return store.Unavailable("begin", err)
	}

	if err := fn(conn); err != nil {
		// Roll back even when ctx is already cancelled, or the pooled connection stays in a transaction
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			s.log.Error("sqlite rollback failed", logger.Error(rbErr))
		}
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return store.Unavailable("commit", err)
	}
	return nil
}

// checkBudget sums the day, leaving out skip, and rejects the write when adding duration passes limit
func checkBudget(ctx context.Context, q dbtx, day domain.Day, skip string, duration, limit int) error {
	if limit < 0 {
		return nil
	}
	var total int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration), 0)
		FROM activities
		WHERE user_id = ? AND day = ? AND id <> ?`,
		day.UserID, day.Date, skip).Scan(&total)
	if err != nil {
		return store.Unavailable("sum day", err)
	}
	if total+duration > limit {
		return store.ErrBudgetExceeded
	}
	return nil
}

// PruneBefore deletes every day dated before cutoff and returns how many activities went with them
func (s *Store) PruneBefore(ctx context.Context, cutoff string) (int, error) {
	days, err := s.daysBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE day < ?`, cutoff)
	if err != nil {
		return 0, store.Unavailable("prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.Unavailable("prune", err)
	}

	for _, d := range days {
		s.hub.Notify(d.Key())
	}
	return int(n), nil
}

func (s *Store) daysBefore(ctx context.Context, cutoff string) ([]domain.Day, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id, day FROM activities WHERE day < ?`, cutoff)
	if err != nil {
		return nil, store.Unavailable("prune", err)
	}
	defer rows.Close()

	var days []domain.Day
	for rows.Next() {
		var d domain.Day
		if err := rows.Scan(&d.UserID, &d.Date); err != nil {
			return nil, store.Unavailable("prune", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// GetProfile returns the stored profile or store.ErrNotFound
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, store.ErrUnauthenticated
	}

	var (
		p         = domain.Profile{UserID: userID}
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, email, photo_url, updated_at FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.Name, &p.Email, &p.PhotoURL, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, store.Unavailable("get profile", err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// SaveProfile upserts the profile, keeping stored values for empty fields
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	if p.UserID == "" {
		return store.ErrUnauthenticated
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, email, photo_url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name       = COALESCE(NULLIF(excluded.name, ''), profiles.name),
			email      = COALESCE(NULLIF(excluded.email, ''), profiles.email),
			photo_url  = COALESCE(NULLIF(excluded.photo_url, ''), profiles.photo_url),
			updated_at = excluded.updated_at`,
		p.UserID, p.Name, p.Email, p.PhotoURL, formatTime(s.now()))
	if err != nil {
		return store.Unavailable("save profile", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
