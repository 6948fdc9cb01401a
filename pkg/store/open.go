package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config selects and configures a backend.
type Config struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	MongoURI  string `toml:"mongo_uri"`
	Prefix    string `toml:"prefix"`
}

// Open creates the Store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case BackendFile, "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file store: no directory configured")
		}
		b, err = NewFileBackend(cfg.Dir)
	case BackendRedis:
		b, err = NewRedisBackend(ctx, cfg.RedisAddr)
	case BackendMongo:
		b, err = NewMongoBackend(ctx, cfg.MongoURI)
	case BackendNone:
		b = NullBackend{}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return New(b, cfg.Prefix), nil
}
