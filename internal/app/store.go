package app

import (
	"fmt"

	"github.com/MrSnakeDoc/daylog/internal/config"
	"github.com/MrSnakeDoc/daylog/internal/logger"
	"github.com/MrSnakeDoc/daylog/internal/redis"
	"github.com/MrSnakeDoc/daylog/internal/store"
	"github.com/MrSnakeDoc/daylog/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/daylog/internal/store/redis"
	"github.com/MrSnakeDoc/daylog/internal/store/sqlite"
)

// OpenStore builds the backend selected by DAYLOG_STORE. Redis is connected
// with retries and fails once REDIS_CONNECT_TIMEOUT is spent.
func OpenStore(cfg *config.Config, log logger.Logger) (store.Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using the in-memory store, activities are lost on restart")
		return memory.New(), nil

	case config.StoreSQLite:
		st, err := sqlite.Open(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil

	case config.StoreRedis:
		client, err := redis.New(redis.OptionsFromConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("connect redis store: %w", err)
		}
		return redisstore.NewStore(client, log), nil

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
