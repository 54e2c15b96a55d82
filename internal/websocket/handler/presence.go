// internal/websocket/handlers/presence_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	wstypes "rayslaund-service/internal/domain/websocket"
	ws "rayslaund-service/internal/websocket"
)

// PresenceHandler processes chat:viewing events from operator dashboards
// and feeds the presence tracker.
type PresenceHandler struct {
	tracker *ws.PresenceTracker
}

func NewPresenceHandler(tracker *ws.PresenceTracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// SupportedEvents returns events this handler supports
func (h *PresenceHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeChatViewing,
		wstypes.EventTypeChatViewingStop,
	}
}

// HandleMessage processes presence-related messages
func (h *PresenceHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if !client.IsOperator() {
		client.SendError("forbidden", "Only operators can mark threads as viewed", "")
		return nil
	}

	var req wstypes.ViewingRequest
	if err := mapToStruct(msg.Data, &req); err != nil {
		client.SendError("invalid_request", "Invalid viewing request", err.Error())
		return err
	}
	if req.CustomerID == "" {
		client.SendError("invalid_request", "customer_id is required", "")
		return nil
	}

	switch msg.Type {
	case wstypes.EventTypeChatViewing:
		h.tracker.MarkViewing(req.CustomerID, client.GetIdentityID())

	case wstypes.EventTypeChatViewingStop:
		h.tracker.StopViewing(req.CustomerID, client.GetIdentityID())

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}

	client.SendMessage(wstypes.NewMessage(msg.Type, map[string]interface{}{
		"customer_id": req.CustomerID,
		"success":     true,
	}))

	return nil
}

// Helper function to convert interface{} to struct
func mapToStruct(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
