// Package app wires configuration into the stores shared by the commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/config"
	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/repository"
	"github.com/rpattn/movementcontrol/internal/repository/memory"
	"github.com/rpattn/movementcontrol/internal/session"
)

// OpenStore connects the configured storage backend. For postgres the schema
// is migrated before the store is returned. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	if err := db.RunMigrations(cfg.Database.Config, logger); err != nil {
		return nil, nil, err
	}
	conn, err := db.NewConnection(ctx, cfg.Database.Config, logger)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresStore(conn), conn.Close, nil
}

// OpenSessions returns the configured session store.
func OpenSessions(ctx context.Context, cfg config.Config, logger *zap.Logger) (session.Store, func(), error) {
	if cfg.Sessions.Driver != config.DriverRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	client, err := session.Connect(ctx, cfg.Sessions.RedisAddr, cfg.Sessions.RedisPassword, cfg.Sessions.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Sessions.RedisAddr))
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return session.NewRedisStore(client), closeFn, nil
}

// Grants applies the configured group overrides to the default grants.
func Grants(cfg config.Config) (permission.Grants, error) {
	grants := permission.DefaultGrants()
	if len(cfg.Permissions) == 0 {
		return grants, nil
	}
	grants, err := grants.WithOverrides(cfg.Permissions)
	if err != nil {
		return permission.Grants{}, fmt.Errorf("permissions.groups: %w", err)
	}
	return grants, nil
}
