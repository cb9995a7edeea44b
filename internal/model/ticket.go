package model

import "time"

type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

const TicketLogCap = 200

type TicketMessage struct {
	From string    `json:"from"` // "user" or "admin"
	By   int64     `json:"by"`
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

type Ticket struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Category  string          `json:"category"`
	Subject   string          `json:"subject"`
	Desc      string          `json:"desc"`
	Status    TicketStatus    `json:"status"`
	Messages  []TicketMessage `json:"messages,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Append adds a message, keeping only the last TicketLogCap entries.
func (t *Ticket) Append(msg TicketMessage) {
	t.Messages = append(t.Messages, msg)
	if len(t.Messages) > TicketLogCap {
		t.Messages = t.Messages[len(t.Messages)-TicketLogCap:]
	}
	t.UpdatedAt = msg.At
}
