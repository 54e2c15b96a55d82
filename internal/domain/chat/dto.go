// internal/domain/chat/dto.go
package chat

import "time"

type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

// ThreadView is what dashboards render: the thread plus derived state.
type ThreadView struct {
	CustomerID     string    `json:"customer_id"`
	CustomerName   string    `json:"customer_name,omitempty"`
	Ownership      Ownership `json:"ownership"`
	Messages       []Message `json:"messages"`
	NeedsAttention bool      `json:"needs_attention"`
}

// AttentionItem is one row in the operator "needs attention" list.
type AttentionItem struct {
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Ownership    Ownership `json:"ownership"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
