// Package store persists users and messages. It is the single source of
// truth for conversation history and delivery status; live websocket pushes
// are only a best-effort hint layered on top of it.
package store

import (
	"context"
	"errors"

	"github.com/whatease/backend/internal/model/chat"
)

var (
	// ErrDuplicateID is reported when a message id already exists. Callers
	// treat it as idempotent success: the message is stored exactly once.
	ErrDuplicateID = errors.New("message id already exists")

	// ErrNotFound is reported for lookups and status updates against
	// unknown ids or emails.
	ErrNotFound = errors.New("not found")

	// ErrStatusRegression is reported when a status update would move a
	// message to an earlier lifecycle state.
	ErrStatusRegression = errors.New("status cannot move backwards")

	// ErrUserExists is reported when registering an email that already has
	// credentials on file.
	ErrUserExists = errors.New("user already exists")
)

// Store is the persistence contract shared by all backends. All writes are
// durable before the call returns; a message created here is visible to an
// immediately-following Conversation call.
type Store interface {
	// CreateMessage inserts msg. A colliding message id leaves the stored
	// row untouched and reports ErrDuplicateID.
	CreateMessage(ctx context.Context, msg *chat.Message) error

	// Conversation returns every message exchanged between the two emails,
	// in either direction, ordered by timestamp ascending. The arguments
	// are symmetric.
	Conversation(ctx context.Context, userA, userB string) ([]chat.Message, error)

	// UpdateStatus advances the status of a message. Unknown ids report
	// ErrNotFound; moving to an earlier state reports ErrStatusRegression.
	// Re-applying the current state is a no-op that succeeds.
	UpdateStatus(ctx context.Context, messageID string, status chat.Status) error

	// EnsureUser records the email if it has not been seen before.
	EnsureUser(ctx context.Context, email string) error

	// RegisterUser stores credentials for a new account. An email that
	// already has credentials reports ErrUserExists; an email previously
	// seen only as a message participant is upgraded in place.
	RegisterUser(ctx context.Context, email, passwordHash string) error

	// User fetches a user by email, reporting ErrNotFound when absent.
	User(ctx context.Context, email string) (*chat.User, error)

	Close() error
}
