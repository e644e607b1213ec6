package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOptions holds the credentials used to open the connection pool
type PostgresOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders the options as a postgres:// connection string
func (o PostgresOptions) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:   "/" + o.Database,
	}
	if o.User != "" {
		u.User = url.UserPassword(o.User, o.Password)
	}
	return u.String()
}

// PostgresStore is the production store backed by a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the pool and verifies connectivity
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) (bool, error) {
	var exists *string
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass('public.discord_user')::text`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check schema: %w", err)
	}
	if exists != nil {
		return false, nil
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS discord_user (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			uuid TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS guild (
			id TEXT PRIMARY KEY,
			server TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return false, fmt.Errorf("ensure schema: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit schema: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) LinkAccount(ctx context.Context, userID, username, uuid string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO discord_user (id, username, uuid, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			uuid = EXCLUDED.uuid,
			updated_at = NOW()
	`, userID, username, uuid)
	if err != nil {
		return fmt.Errorf("link account: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnlinkAccount(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM discord_user WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("unlink account: %w", err)
	}
	return nil
}

func (s *PostgresStore) LinkedAccount(ctx context.Context, userID string) (*LinkedAccount, error) {
	var acc LinkedAccount
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, uuid, updated_at FROM discord_user WHERE id = $1`, userID,
	).Scan(&acc.UserID, &acc.Username, &acc.UUID, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get linked account: %w", err)
	}
	return &acc, nil
}

func (s *PostgresStore) SetGuildServer(ctx context.Context, guildID, server string) error {
	var value *string
	if server != "" {
		value = &server
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guild (id, server, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			server = EXCLUDED.server,
			updated_at = NOW()
	`, guildID, value)
	if err != nil {
		return fmt.Errorf("set guild server: %w", err)
	}
	return nil
}

func (s *PostgresStore) GuildServer(ctx context.Context, guildID string) (string, error) {
	var server *string
	err := s.pool.QueryRow(ctx, `SELECT server FROM guild WHERE id = $1`, guildID).Scan(&server)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get guild server: %w", err)
	}
	if server == nil {
		return "", nil
	}
	return *server, nil
}
