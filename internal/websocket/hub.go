// internal/websocket/hub.go
package websocket

import (
	"context"
	"log"
	"sync"

	wstypes "rayslaund-service/internal/domain/websocket"
	"rayslaund-service/internal/events"
	"rayslaund-service/internal/pkg/jwt"
	"rayslaund-service/internal/pkg/session"
)

type Hub struct {
	// Registered clients by identity ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	// Called when the last connection for an identity drops
	disconnectHooks []func(identityID string)

	// Auth dependencies
	jwtVerifier    *jwt.Verifier
	sessionManager *session.Manager

	// Store change fan-out
	bus *events.Bus
}

// BroadcastMessage targets clients by identity, by role, or everyone when
// both selectors are empty. A client matching either selector receives the
// message once.
type BroadcastMessage struct {
	IdentityIDs []string
	Roles       []string
	Channel     wstypes.ChannelType
	Message     *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, sessionManager *session.Manager, bus *events.Bus) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		sessionManager:  sessionManager,
		bus:             bus,
	}
}

// AuthenticateClient validates the JWT token and creates an authenticated client
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	blacklisted, err := h.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	sessionData, err := h.sessionManager.GetSession(ctx, claims.IdentityID, claims.ID)
	if err != nil {
		return nil, ErrSessionExpired
	}

	return &ClientAuth{
		IdentityID: claims.IdentityID,
		SessionID:  claims.ID,
		Role:       claims.Role,
		FullName:   claims.FullName,
		Email:      sessionData.Email,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// RegisterDisconnectHook adds a callback fired when an identity loses its
// last connection. Used to clear viewing presence.
func (h *Hub) RegisterDisconnectHook(hook func(identityID string)) {
	h.disconnectHooks = append(h.disconnectHooks, hook)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return nil // Will be handled by client's default handler
	}
	return handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	storeEvents := h.bus.Subscribe()
	defer h.bus.Unsubscribe(storeEvents)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)

		case ev := <-storeEvents:
			h.BroadcastMessage(&BroadcastMessage{
				Channel: wstypes.ChannelSystem,
				Message: wstypes.NewMessage(wstypes.EventTypeStoreChanged, wstypes.StoreChangedData{
					Collection: string(ev.Collection),
				}),
			})
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.identityID] == nil {
		h.clients[client.identityID] = make(map[*Client]bool)
	}
	h.clients[client.identityID][client] = true

	log.Printf("Client connected: identity=%s, session=%s, total=%d",
		client.identityID, client.sessionID, h.totalClients())

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"identity_id": client.identityID,
		"session_id":  client.sessionID,
		"role":        client.role,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	var lastForIdentity bool
	if clients, ok := h.clients[client.identityID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.identityID)
				lastForIdentity = true
			}

			log.Printf("Client disconnected: identity=%s, session=%s, total=%d",
				client.identityID, client.sessionID, h.totalClients())
		}
	}
	h.mu.Unlock()

	if lastForIdentity {
		for _, hook := range h.disconnectHooks {
			hook(client.identityID)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.IdentityIDs == nil && msg.Roles == nil {
		for _, clients := range h.clients {
			for client := range clients {
				if client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
				}
			}
		}
		return
	}

	sent := make(map[*Client]bool)

	for _, identityID := range msg.IdentityIDs {
		for client := range h.clients[identityID] {
			if !sent[client] && client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
				sent[client] = true
			}
		}
	}

	for _, role := range msg.Roles {
		for _, clients := range h.clients {
			for client := range clients {
				if !sent[client] && client.role == role && client.IsSubscribed(msg.Channel) {
					client.SendMessage(msg.Message)
					sent[client] = true
				}
			}
		}
	}
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// Public methods for broadcasting

// PushOrderStatus notifies the order's customer and all operator dashboards
// of a lifecycle change.
func (h *Hub) PushOrderStatus(customerID string, data *wstypes.OrderStatusData) {
	h.broadcast <- &BroadcastMessage{
		IdentityIDs: []string{customerID},
		Roles:       []string{"staff", "admin"},
		Channel:     wstypes.ChannelOrders,
		Message:     wstypes.NewMessage(wstypes.EventTypeOrderStatus, data),
	}
}

// PushChatMessage delivers a new thread message to the customer and to
// operator dashboards.
func (h *Hub) PushChatMessage(customerID string, data *wstypes.ChatMessageData) {
	h.broadcast <- &BroadcastMessage{
		IdentityIDs: []string{customerID},
		Roles:       []string{"staff", "admin"},
		Channel:     wstypes.ChannelChat,
		Message:     wstypes.NewMessage(wstypes.EventTypeChatMessage, data),
	}
}

// PushAttention alerts operators that a thread needs a human.
func (h *Hub) PushAttention(data *wstypes.AttentionData) {
	h.broadcast <- &BroadcastMessage{
		Roles:   []string{"staff", "admin"},
		Channel: wstypes.ChannelAttention,
		Message: wstypes.NewMessage(wstypes.EventTypeAttentionRaised, data),
	}
}

// DisconnectUser forcefully disconnects all sessions for a user, for example
// after a password change revokes the account's sessions.
func (h *Hub) DisconnectUser(identityID string, reason string) {
	h.mu.Lock()

	clients, ok := h.clients[identityID]
	if ok {
		disconnectMsg := wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
			"reason": reason,
		})

		for client := range clients {
			client.SendMessage(disconnectMsg)
			client.Close()
		}

		delete(h.clients, identityID)
		log.Printf("Disconnected all clients for identity=%s, reason=%s", identityID, reason)
	}
	h.mu.Unlock()

	if ok {
		for _, hook := range h.disconnectHooks {
			hook(identityID)
		}
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
}
