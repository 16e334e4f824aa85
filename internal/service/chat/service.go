// Package chat orchestrates message delivery: it persists every message,
// then pushes it to any live connections. Durability, not live delivery, is
// the correctness boundary; a failed push never fails the operation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/whatease/backend/internal/model/chat"
	"github.com/whatease/backend/internal/service/session"
	"github.com/whatease/backend/internal/store"
)

var (
	ErrEmptyContent  = errors.New("content must not be empty")
	ErrMissingParty  = errors.New("sender and recipient are required")
	ErrInvalidStatus = errors.New("unknown status value")
)

// Push frame types understood by connected clients.
const (
	FrameNewMessage = "new_message"
	FrameBotReply   = "bot_reply"
)

// Responder produces assistant reply text. Implementations never fail; a
// degraded upstream yields fallback text instead.
type Responder interface {
	Reply(ctx context.Context, userID, text string) string
}

// Service is the delivery router.
type Service struct {
	store     store.Store
	registry  *session.Registry
	responder Responder
	botID     string
}

func NewService(st store.Store, registry *session.Registry, responder Responder, botID string) *Service {
	return &Service{
		store:     st,
		registry:  registry,
		responder: responder,
		botID:     botID,
	}
}

// BotID returns the reserved assistant identifier.
func (s *Service) BotID() string {
	return s.botID
}

// SendDirectMessage persists a message from sender to recipient and pushes
// it to both parties' live connections. clientID may be empty; a fresh id is
// minted then. The returned message is the canonical stored record.
func (s *Service) SendDirectMessage(ctx context.Context, sender, recipient, content, clientID string) (*chat.Message, error) {
	if sender == "" || recipient == "" {
		return nil, ErrMissingParty
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	id := clientID
	if id == "" {
		id = uuid.NewString()
	}

	msg := &chat.Message{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Status:    chat.StatusSent,
	}

	if err := s.ensureParticipants(ctx, sender, recipient); err != nil {
		return nil, err
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			// Idempotent retry: the message is already stored and was
			// already pushed once, so report success without re-pushing.
			return msg, nil
		}
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// Pushes happen only after the durable write; a crash cannot leave a
	// client holding a message that is absent from history.
	if recipient != sender {
		s.push(recipient, session.Envelope{Type: FrameNewMessage, Message: *msg})
	}
	s.push(sender, session.Envelope{Type: FrameNewMessage, Message: *msg})

	return msg, nil
}

// RequestAssistantReply obtains an assistant reply for content, persists it
// as a message from the bot to userID and pushes it to the requester.
func (s *Service) RequestAssistantReply(ctx context.Context, userID, content string) (*chat.Message, error) {
	if userID == "" {
		return nil, ErrMissingParty
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	if err := s.ensureParticipants(ctx, userID, s.botID); err != nil {
		return nil, err
	}

	reply := s.responder.Reply(ctx, userID, content)

	msg := &chat.Message{
		ID:            uuid.NewString(),
		Sender:        s.botID,
		Recipient:     userID,
		Content:       reply,
		Timestamp:     time.Now().UTC(),
		Status:        chat.StatusSent,
		IsBotResponse: true,
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil && !errors.Is(err, store.ErrDuplicateID) {
		return nil, fmt.Errorf("persist assistant reply: %w", err)
	}

	s.push(userID, session.Envelope{Type: FrameBotReply, Message: *msg})

	return msg, nil
}

// Conversation returns the full ordered history between two users.
func (s *Service) Conversation(ctx context.Context, userA, userB string) ([]chat.Message, error) {
	if userA == "" || userB == "" {
		return nil, ErrMissingParty
	}
	return s.store.Conversation(ctx, userA, userB)
}

// SetMessageStatus advances a message's delivery status. Nothing advances
// status automatically; this explicit call is the only path.
func (s *Service) SetMessageStatus(ctx context.Context, messageID string, status chat.Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return s.store.UpdateStatus(ctx, messageID, status)
}

// ConnectionOpened registers a live channel for userID and returns the
// handle to pass to ConnectionClosed.
func (s *Service) ConnectionOpened(userID string, ch session.Channel) int64 {
	return s.registry.Register(userID, ch)
}

// ConnectionClosed removes the registration made with handle.
func (s *Service) ConnectionClosed(userID string, handle int64) {
	s.registry.Unregister(userID, handle)
}

func (s *Service) ensureParticipants(ctx context.Context, first, second string) error {
	if err := s.store.EnsureUser(ctx, first); err != nil {
		return fmt.Errorf("ensure user %s: %w", first, err)
	}
	if err := s.store.EnsureUser(ctx, second); err != nil {
		return fmt.Errorf("ensure user %s: %w", second, err)
	}
	return nil
}

// push delivers env to userID's live channel, if any. Failures are absorbed:
// the message is already durable, so the dead channel is just dropped.
func (s *Service) push(userID string, env session.Envelope) {
	ch, ok := s.registry.Lookup(userID)
	if !ok {
		return
	}
	if err := ch.Push(env); err != nil {
		log.Printf("[chat] push to %s failed, dropping channel: %v", userID, err)
		s.registry.Drop(userID, ch)
	}
}
