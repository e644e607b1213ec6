package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the file-backed store used for local development
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (or creates) the database file at dbPath
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// Close closes the database connection
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// EnsureSchema creates the tables if the discord_user table does not exist yet
func (db *SQLiteStore) EnsureSchema(ctx context.Context) (bool, error) {
	var name string
	err := db.conn.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'discord_user'`,
	).Scan(&name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to check schema: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS discord_user (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		uuid TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS guild (
		id TEXT PRIMARY KEY,
		server TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return false, fmt.Errorf("failed to create tables: %w", err)
	}
	return true, nil
}

// LinkAccount stores or updates the Minecraft account linked to a user
func (db *SQLiteStore) LinkAccount(ctx context.Context, userID, username, uuid string) error {
	query := `
	INSERT INTO discord_user (id, username, uuid, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id)
	DO UPDATE SET
		username = excluded.username,
		uuid = excluded.uuid,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := db.conn.ExecContext(ctx, query, userID, username, uuid); err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

// UnlinkAccount removes a user's linked account. Unlinking an unknown user is not an error.
func (db *SQLiteStore) UnlinkAccount(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM discord_user WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("failed to unlink account: %w", err)
	}
	return nil
}

// LinkedAccount retrieves the account linked to a user
func (db *SQLiteStore) LinkedAccount(ctx context.Context, userID string) (*LinkedAccount, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, username, uuid, updated_at FROM discord_user WHERE id = ?`, userID)

	var acc LinkedAccount
	err := row.Scan(&acc.UserID, &acc.Username, &acc.UUID, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No account linked
		}
		return nil, fmt.Errorf("failed to get linked account: %w", err)
	}
	return &acc, nil
}

// SetGuildServer sets the default Minecraft server for a guild. An empty server clears it.
func (db *SQLiteStore) SetGuildServer(ctx context.Context, guildID, server string) error {
	query := `
	INSERT INTO guild (id, server, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(id)
	DO UPDATE SET
		server = excluded.server,
		updated_at = CURRENT_TIMESTAMP
	`

	var value sql.NullString
	if server != "" {
		value = sql.NullString{String: server, Valid: true}
	}
	if _, err := db.conn.ExecContext(ctx, query, guildID, value); err != nil {
		return fmt.Errorf("failed to set guild server: %w", err)
	}
	return nil
}

// GuildServer returns the default server of a guild, or "" when none is set
func (db *SQLiteStore) GuildServer(ctx context.Context, guildID string) (string, error) {
	var server sql.NullString
	err := db.conn.QueryRowContext(ctx, `SELECT server FROM guild WHERE id = ?`, guildID).Scan(&server)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get guild server: %w", err)
	}
	return server.String, nil
}
