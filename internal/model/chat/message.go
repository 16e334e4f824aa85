package chat

import "time"

// Status tracks how far a message has progressed toward being read.
// Transitions only move forward: Sent -> Delivered -> Read.
type Status string

const (
	StatusSent      Status = "Sent"
	StatusDelivered Status = "Delivered"
	StatusRead      Status = "Read"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// Valid reports whether s is one of the known status literals.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Before reports whether s precedes other in the delivery lifecycle.
func (s Status) Before(other Status) bool {
	return statusRank[s] < statusRank[other]
}

// Message is the durable record of a single chat message.
type Message struct {
	ID            string    `json:"message_id"`
	Sender        string    `json:"sender"`
	Recipient     string    `json:"recipient"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	Status        Status    `json:"status"`
	IsBotResponse bool      `json:"is_bot_response"`
}
