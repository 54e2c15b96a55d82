// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Store events (server -> client). Carries only the collection name;
	// observers re-read through the REST query surface.
	EventTypeStoreChanged EventType = "store:changed"

	// Domain events (server -> client)
	EventTypeChatMessage     EventType = "chat:message"
	EventTypeOrderStatus     EventType = "order:status"
	EventTypeAttentionRaised EventType = "attention:raised"

	// Presence events (client -> server): operator opened/closed a thread
	EventTypeChatViewing     EventType = "chat:viewing"
	EventTypeChatViewingStop EventType = "chat:viewing_stop"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelOrders    ChannelType = "orders"
	ChannelChat      ChannelType = "chat"
	ChannelAttention ChannelType = "attention"
	ChannelSystem    ChannelType = "system"
)

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StoreChangedData names the collection that was just written.
type StoreChangedData struct {
	Collection string `json:"collection"`
}

// ChatMessageData for chat events pushed to thread participants
type ChatMessageData struct {
	CustomerID     string    `json:"customer_id"`
	MessageID      string    `json:"message_id"`
	SenderRole     string    `json:"sender_role"`
	Text           string    `json:"text"`
	IsAutomated    bool      `json:"is_automated"`
	NeedsAttention bool      `json:"needs_attention"`
	Timestamp      time.Time `json:"timestamp"`
}

// OrderStatusData for order lifecycle events
type OrderStatusData struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
}

// AttentionData alerts operators that a thread needs a human
type AttentionData struct {
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// ViewingRequest marks the operator as actively viewing a thread
type ViewingRequest struct {
	CustomerID string `json:"customer_id"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        generateMessageID(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

func generateMessageID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
