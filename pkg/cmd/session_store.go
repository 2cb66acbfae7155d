package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/parley-hq/parley/pkg/session"
)

var supportedStoreProviders = []string{"redis", "postgres", "postgresql"}

// NewSessionStore creates a session store from a connection URL. Redis and
// Postgres URLs pick their backends; anything else gets the in-memory store.
func NewSessionStore(ctx context.Context, logger *slog.Logger, storeURL string, ttl time.Duration) (session.Store, error) {
	switch parseStoreProvider(storeURL) {
	case "redis":
		return session.NewRedisStore(ctx, logger, storeURL, ttl)
	case "postgres", "postgresql":
		return session.NewPostgresStore(ctx, logger, storeURL, ttl)
	default:
		return session.NewMemoryStore(logger, ttl), nil
	}
}

func parseStoreProvider(storeURL string) string {
	provider, _, found := strings.Cut(storeURL, "://")
	if !found {
		return "memory"
	}

	for _, supported := range supportedStoreProviders {
		if provider == supported {
			return provider
		}
	}

	return "memory"
}
