package database

import (
	"context"
	"fmt"
	"time"

	"obsidion/internal/config"
)

// LinkedAccount is the Minecraft account a Discord user linked with /link
type LinkedAccount struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	UUID      string    `json:"uuid"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistent storage used by command handlers.
//
// Lookups return a nil/empty value with a nil error when nothing is stored.
type Store interface {
	// EnsureSchema creates the tables when they are missing. It reports
	// whether anything was created so callers can log first-run bootstraps.
	EnsureSchema(ctx context.Context) (bool, error)

	LinkAccount(ctx context.Context, userID, username, uuid string) error
	UnlinkAccount(ctx context.Context, userID string) error
	LinkedAccount(ctx context.Context, userID string) (*LinkedAccount, error)

	SetGuildServer(ctx context.Context, guildID, server string) error
	GuildServer(ctx context.Context, guildID string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open opens the store selected by the configuration. The schema is not
// bootstrapped here; see EnsureSchema.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.GetDatabaseDriver() {
	case config.DriverPostgres:
		return NewPostgresStore(ctx, PostgresOptions{
			Host:     cfg.GetDatabaseHost(),
			Port:     cfg.GetDatabasePort(),
			User:     cfg.GetDatabaseUsername(),
			Password: cfg.GetDatabasePassword(),
			Database: cfg.GetDatabaseName(),
		})
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.GetDatabasePath())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.GetDatabaseDriver())
	}
}
