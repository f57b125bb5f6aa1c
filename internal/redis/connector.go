package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/daylog/internal/config"
	"github.com/MrSnakeDoc/daylog/internal/logger"
)

// ConnectOptions describes the client and how long startup waits for Redis.
type ConnectOptions struct {
	Addr             string // ex: "localhost:6379"
	User             string
	Password         string
	PasswordRequired bool // refuse to dial without a password
	RedisDB          int
	PoolSize         int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	ConnectTimeout time.Duration // total budget for startup attempts
	RetryInterval  time.Duration // first wait, doubled after each failure
	MaxWait        time.Duration // cap on the wait between attempts
	PingTimeout    time.Duration // per attempt
	WarnThreshold  int           // attempts logged as warnings before switching to errors
}

// OptionsFromConfig maps the DAYLOG_REDIS_* and REDIS_* keys.
func OptionsFromConfig(cfg *config.Config) ConnectOptions {
	return ConnectOptions{
		Addr:             cfg.RedisAddr,
		User:             cfg.RedisUser,
		Password:         cfg.RedisPassword,
		PasswordRequired: cfg.RedisPasswordRequired,
		RedisDB:          cfg.RedisDB,
		PoolSize:         cfg.RedisPoolSize,
		DialTimeout:      cfg.RedisDT,
		ReadTimeout:      cfg.RedisRT,
		WriteTimeout:     cfg.RedisWT,
		ConnectTimeout:   cfg.RedisConnectTimeout,
		RetryInterval:    cfg.RedisRetryInterval,
		MaxWait:          cfg.RedisMaxWait,
		PingTimeout:      cfg.RedisPingTimeout,
		WarnThreshold:    cfg.RedisWarnThreshold,
	}
}

// Validate reports every invalid field at once.
func (o ConnectOptions) Validate() error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, errors.New("redis address must not be empty"))
	}
	if o.PasswordRequired && o.Password == "" {
		errs = append(errs, errors.New("redis password is required"))
	}
	if o.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect timeout must be > 0, got %v", o.ConnectTimeout))
	}
	if o.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("retry interval must be > 0, got %v", o.RetryInterval))
	}
	if o.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("max wait must be > 0, got %v", o.MaxWait))
	}
	if o.PingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ping timeout must be > 0, got %v", o.PingTimeout))
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("warn threshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

func (o ConnectOptions) client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Username:     o.User,
		Password:     o.Password,
		DB:           o.RedisDB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
	})
}

// backoff doubles the wait up to max.
type backoff struct {
	next, max time.Duration
}

func (b *backoff) wait() time.Duration {
	w := b.next
	b.next = min(b.next*2, b.max)
	return w
}

// New dials Redis for the activity store, retrying until ConnectTimeout.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	return Dial(context.Background(), opts, log)
}

// Dial is New with a caller context; cancelling it aborts startup.
// On failure the client is closed and nil is returned.
func Dial(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.Validate(); err != nil {
		log.Error("invalid redis options", logger.Error(err))
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	client := opts.client()
	bo := backoff{next: opts.RetryInterval, max: opts.MaxWait}
	start := time.Now()

	log.Info("connecting to redis",
		logger.String("addr", opts.Addr),
		logger.Int("db", opts.RedisDB),
		logger.Duration("timeout", opts.ConnectTimeout))

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			fields := []logger.Field{
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)),
			}
			if attempt > 1 {
				log.Warn("redis reachable after retry", fields...)
			} else {
				log.Info("redis reachable", fields...)
			}
			return client, nil
		}

		wait := bo.wait()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = client.Close()
			log.Error("redis unavailable, activity store not started",
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Duration("timeout", opts.ConnectTimeout),
				logger.Error(err))
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				opts.Addr, attempt, opts.ConnectTimeout, err)
		case <-timer.C:
		}

		retryFields := []logger.Field{
			logger.String("addr", opts.Addr),
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("redis connection failed, retrying", retryFields...)
		} else {
			log.Error("redis still unavailable, retrying", retryFields...)
		}
	}
}
