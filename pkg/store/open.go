package store

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
)

// Open builds the backend named by cfg, wrapped in a Redis cache when a
// redis url is configured. A nil cfg loads the default configuration.
func Open(cfg Config, logger *log.Logger) (Store, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	var (
		base Store
		err  error
	)
	switch cfg.Backend() {
	case BackendDevice, "":
		base, err = NewDevice(cfg.BasePath(), logger)
	case BackendRemote:
		base, err = NewRemote(cfg.RemoteURL(), WithToken(cfg.RemoteToken()))
	case BackendMemory:
		base = NewMemory()
	default:
		err = fmt.Errorf("store: unknown backend %q", cfg.Backend())
	}
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL() == "" {
		return base, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL())
	if err != nil {
		return nil, fmt.Errorf("store: redis url: %w", err)
	}
	return NewCache(base, redis.NewClient(opts), cfg.RedisTTL(), logger), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, milestone.ErrNotFound)
}
