package storage

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/you/trisonapp/domain"
	"github.com/you/trisonapp/internal/config"
)

// Open builds the TokenStore backend named by the configuration.
func Open(cfg *config.Config) (domain.TokenStore, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.StorePath)
	case "sqlite":
		return NewSQLiteStore(cfg.StorePath)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
