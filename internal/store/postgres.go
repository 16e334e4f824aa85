package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/whatease/backend/internal/model/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	email         TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	password_hash TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	message_id      TEXT PRIMARY KEY,
	sender          TEXT NOT NULL,
	recipient       TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	status          TEXT NOT NULL,
	is_bot_response BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_messages_participants
	ON messages (sender, recipient, timestamp);
`

// Postgres is the durable Store backend.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database, verifies the connection and
// bootstraps the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) CreateMessage(ctx context.Context, msg *chat.Message) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, sender, recipient, content, timestamp, status, is_bot_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
	`, msg.ID, msg.Sender, msg.Recipient, msg.Content, msg.Timestamp, string(msg.Status), msg.IsBotResponse)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateID
	}
	return nil
}

func (p *Postgres) Conversation(ctx context.Context, userA, userB string) ([]chat.Message, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT message_id, sender, recipient, content, timestamp, status, is_bot_response
		FROM messages
		WHERE (sender = $1 AND recipient = $2) OR (sender = $2 AND recipient = $1)
		ORDER BY timestamp ASC, message_id ASC
	`, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		var m chat.Message
		var status string
		if err := rows.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Content, &m.Timestamp, &status, &m.IsBotResponse); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Status = chat.Status(status)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (p *Postgres) UpdateStatus(ctx context.Context, messageID string, status chat.Status) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM messages WHERE message_id = $1 FOR UPDATE`, messageID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}

	if status.Before(chat.Status(current)) {
		return ErrStatusRegression
	}
	if chat.Status(current) == status {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET status = $1 WHERE message_id = $2`, string(status), messageID,
	); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return tx.Commit()
}

func (p *Postgres) EnsureUser(ctx context.Context, email string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (email, created_at) VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`, email, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (p *Postgres) RegisterUser(ctx context.Context, email, passwordHash string) error {
	// An email first seen as a message participant has an empty hash and
	// may still claim the account; a registered one may not.
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO users (email, created_at, password_hash) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash
		WHERE users.password_hash = ''
	`, email, time.Now().UTC(), passwordHash)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if affected == 0 {
		return ErrUserExists
	}
	return nil
}

func (p *Postgres) User(ctx context.Context, email string) (*chat.User, error) {
	var u chat.User
	err := p.db.QueryRowContext(ctx,
		`SELECT email, created_at, password_hash FROM users WHERE email = $1`, email,
	).Scan(&u.Email, &u.CreatedAt, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
