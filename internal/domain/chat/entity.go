// internal/domain/chat/entity.go
package chat

import "time"

// SenderRole is the display role attached to a message.
type SenderRole string

const (
	SenderCustomer  SenderRole = "customer"
	SenderAssistant SenderRole = "assistant"
	SenderStaff     SenderRole = "staff"
	SenderAdmin     SenderRole = "admin"
)

// Ownership is the per-thread control state: whether the automated
// assistant or a human operator currently owns the conversation.
type Ownership string

const (
	OwnedByAssistant Ownership = "AI_OWNED"
	OwnedByHuman     Ownership = "HUMAN_OWNED"
)

// Message is one entry in a customer's support thread.
//
// IsHumanOwned is thread-scoped state denormalized onto every message:
// ownership changes rewrite the flag across the whole stored history, not
// just new entries. That rewrite-on-toggle behavior is deliberate and load
// bearing for existing consumers.
type Message struct {
	ID             string     `json:"id" db:"id"`
	SenderID       string     `json:"sender_id" db:"sender_id"`
	SenderName     string     `json:"sender_name" db:"sender_name"`
	SenderRole     SenderRole `json:"sender_role" db:"sender_role"`
	Text           string     `json:"text" db:"text"`
	IsAutomated    bool       `json:"is_automated" db:"is_automated"`
	NeedsAttention bool       `json:"needs_attention" db:"needs_attention"`
	IsHumanOwned   bool       `json:"is_human_owned" db:"is_human_owned"`
	Timestamp      time.Time  `json:"timestamp" db:"created_at"`
}

// Thread is a customer's full conversation plus its control state.
// OwnershipRev increases only when ownership toggles; it gates in-flight
// automated replies against concurrent takeovers.
type Thread struct {
	CustomerID   string    `json:"customer_id"`
	Ownership    Ownership `json:"ownership"`
	OwnershipRev int64     `json:"ownership_rev"`
	Messages     []Message `json:"messages"`
}

func (t *Thread) HumanOwned() bool {
	return t.Ownership == OwnedByHuman
}

// LastMessage returns the most recent message or nil for an empty thread.
func (t *Thread) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}
