package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/daylog/internal/config"
	"github.com/MrSnakeDoc/daylog/internal/logger"
)

func validOptions() ConnectOptions {
	return ConnectOptions{
		Addr:           "127.0.0.1:1",
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  50 * time.Millisecond,
		MaxWait:        100 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnThreshold:  1,
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		RedisAddr:           "redis:6379",
		RedisUser:           "default",
		RedisPassword:       "pw",
		RedisDB:             2,
		RedisPoolSize:       7,
		RedisConnectTimeout: 30 * time.Second,
		RedisRetryInterval:  2 * time.Second,
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.RedisDB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 2*time.Second, opts.RetryInterval)
}

func TestOptionsFromConfigCarriesPasswordRequirement(t *testing.T) {
	opts := OptionsFromConfig(&config.Config{RedisAddr: "redis:6379", RedisPasswordRequired: true})
	assert.True(t, opts.PasswordRequired)
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ConnectOptions)
	}{
		{"no addr", func(o *ConnectOptions) { o.Addr = "" }},
		{"password required", func(o *ConnectOptions) { o.PasswordRequired = true }},
		{"connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }},
		{"retry interval", func(o *ConnectOptions) { o.RetryInterval = 0 }},
		{"max wait", func(o *ConnectOptions) { o.MaxWait = -time.Second }},
		{"ping timeout", func(o *ConnectOptions) { o.PingTimeout = 0 }},
		{"warn threshold", func(o *ConnectOptions) { o.WarnThreshold = -1 }},
	}
	require.NoError(t, validOptions().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.Validate())
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	err := ConnectOptions{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address")
	assert.Contains(t, err.Error(), "connect timeout")
	assert.Contains(t, err.Error(), "ping timeout")
}

func TestBackoffDoublesUpToMax(t *testing.T) {
	bo := backoff{next: 50 * time.Millisecond, max: 150 * time.Millisecond}
	var got []time.Duration
	for i := 0; i < 4; i++ {
		got = append(got, bo.wait())
	}
	assert.Equal(t, []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		150 * time.Millisecond,
		150 * time.Millisecond,
	}, got)
}

func TestNewGivesUpAfterConnectTimeout(t *testing.T) {
	start := time.Now()
	client, err := New(validOptions(), logger.Nop())

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "redis unavailable at 127.0.0.1:1")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDialStopsWhenContextIsCancelled(t *testing.T) {
	opts := validOptions()
	opts.ConnectTimeout = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	client, err := Dial(ctx, opts, logger.Nop())

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Less(t, time.Since(start), 10*time.Second)
}
