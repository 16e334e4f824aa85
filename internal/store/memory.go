package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/whatease/backend/internal/model/chat"
)

// Memory is an in-process Store backend. It backs tests and the
// STORE_DRIVER=memory escape hatch; contents are lost on restart.
type Memory struct {
	mu       sync.RWMutex
	messages map[string]chat.Message
	order    []string
	users    map[string]chat.User
}

func NewMemory() *Memory {
	return &Memory{
		messages: make(map[string]chat.Message),
		users:    make(map[string]chat.User),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateMessage(_ context.Context, msg *chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.messages[msg.ID]; ok {
		return ErrDuplicateID
	}
	m.messages[msg.ID] = *msg
	m.order = append(m.order, msg.ID)
	return nil
}

func (m *Memory) Conversation(_ context.Context, userA, userB string) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var messages []chat.Message
	for _, id := range m.order {
		msg := m.messages[id]
		if (msg.Sender == userA && msg.Recipient == userB) ||
			(msg.Sender == userB && msg.Recipient == userA) {
			messages = append(messages, msg)
		}
	}

	// Insertion order already matches creation order; sorting keeps the
	// timestamp-ascending contract when callers supply their own stamps.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

func (m *Memory) UpdateStatus(_ context.Context, messageID string, status chat.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[messageID]
	if !ok {
		return ErrNotFound
	}
	if status.Before(msg.Status) {
		return ErrStatusRegression
	}
	msg.Status = status
	m.messages[messageID] = msg
	return nil
}

func (m *Memory) EnsureUser(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[email]; !ok {
		m.users[email] = chat.User{Email: email, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (m *Memory) RegisterUser(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.users[email]; ok {
		if existing.PasswordHash != "" {
			return ErrUserExists
		}
		existing.PasswordHash = passwordHash
		m.users[email] = existing
		return nil
	}
	m.users[email] = chat.User{Email: email, CreatedAt: time.Now().UTC(), PasswordHash: passwordHash}
	return nil
}

func (m *Memory) User(_ context.Context, email string) (*chat.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
