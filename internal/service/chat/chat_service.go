// internal/service/chat/chat_service.go
package chat

import (
	"context"
	"fmt"

	"rayslaund-service/internal/domain/chat"
	"rayslaund-service/internal/domain/user"
	wstypes "rayslaund-service/internal/domain/websocket"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/service/assistant"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Repository is the chat slice of the record store.
type Repository interface {
	GetThread(ctx context.Context, customerID string) (*chat.Thread, error)
	AppendMessage(ctx context.Context, customerID string, m *chat.Message) error
	AppendAutomatedReply(ctx context.Context, customerID string, m *chat.Message, expectedRev int64) (bool, error)
	AppendOperatorMessage(ctx context.Context, customerID string, m *chat.Message) error
	SetOwnership(ctx context.Context, customerID string, ownership chat.Ownership) error
	ListThreadSummaries(ctx context.Context) ([]chat.AttentionItem, error)
}

// Presence reports whether any operator currently has a thread open.
type Presence interface {
	IsViewing(customerID string) bool
}

// Broadcaster pushes chat events to connected dashboards.
type Broadcaster interface {
	PushChatMessage(customerID string, data *wstypes.ChatMessageData)
	PushAttention(data *wstypes.AttentionData)
}

// Service arbitrates thread ownership between the automated assistant and
// human operators. A thread starts assistant-owned; it becomes human-owned
// when the generator asks for a human, when an operator takes over
// explicitly, or when an operator replies. Release hands it back.
type Service struct {
	repo      Repository
	responder assistant.Responder
	presence  Presence
	push      Broadcaster
	logger    *zap.Logger
}

func NewService(repo Repository, responder assistant.Responder, presence Presence, push Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		responder: responder,
		presence:  presence,
		push:      push,
		logger:    logger,
	}
}

// SendCustomerMessage appends the customer's message and, when the thread
// is assistant-owned, generates and appends the automated reply. Ownership
// is evaluated at send time; a takeover that lands while the generation is
// in flight wins, and the stale reply is dropped by the revision gate.
func (s *Service) SendCustomerMessage(ctx context.Context, customer *user.User, text string) (*chat.ThreadView, error) {
	thread, err := s.repo.GetThread(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}

	msg := &chat.Message{
		ID:         ulid.Make().String(),
		SenderID:   customer.ID,
		SenderName: customer.FullName,
		SenderRole: chat.SenderCustomer,
		Text:       text,
	}
	if err := s.repo.AppendMessage(ctx, customer.ID, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	s.pushMessage(customer.ID, msg)

	// A human owns the conversation: store the message and wait for them.
	if thread.HumanOwned() {
		return s.view(ctx, customer.ID, customer.FullName)
	}

	history := append(thread.Messages, *msg)
	reply := s.responder.GenerateReply(ctx, text, history)

	aiMsg := &chat.Message{
		ID:             ulid.Make().String(),
		SenderID:       "assistant",
		SenderName:     "Support",
		SenderRole:     chat.SenderAssistant,
		Text:           reply.Text,
		IsAutomated:    true,
		NeedsAttention: reply.NeedsHuman,
	}

	appended, err := s.repo.AppendAutomatedReply(ctx, customer.ID, aiMsg, thread.OwnershipRev)
	if err != nil {
		return nil, fmt.Errorf("failed to append automated reply: %w", err)
	}
	if !appended {
		s.logger.Info("dropped stale automated reply after takeover",
			zap.String("customer_id", customer.ID),
		)
		return s.view(ctx, customer.ID, customer.FullName)
	}

	s.pushMessage(customer.ID, aiMsg)
	if reply.NeedsHuman {
		s.logger.Info("thread escalated to human",
			zap.String("customer_id", customer.ID),
		)
		s.pushAttention(customer.ID, "assistant requested human")
	}

	return s.view(ctx, customer.ID, customer.FullName)
}

// SendOperatorReply appends a staff/admin reply. Replying is an implicit
// takeover: the thread becomes human-owned atomically with the append.
func (s *Service) SendOperatorReply(ctx context.Context, operator *user.User, customerID, text string) (*chat.Message, error) {
	if !operator.Role.IsOperator() {
		return nil, xerrors.ErrForbidden
	}

	role := chat.SenderStaff
	name := "Staff Support"
	if operator.Role == user.RoleAdmin {
		role = chat.SenderAdmin
		name = "Admin"
	}

	msg := &chat.Message{
		ID:         ulid.Make().String(),
		SenderID:   operator.ID,
		SenderName: name,
		SenderRole: role,
		Text:       text,
	}

	if err := s.repo.AppendOperatorMessage(ctx, customerID, msg); err != nil {
		return nil, fmt.Errorf("failed to append operator reply: %w", err)
	}

	s.logger.Info("operator replied",
		zap.String("customer_id", customerID),
		zap.String("operator_id", operator.ID),
		zap.String("role", string(operator.Role)),
	)

	s.pushMessage(customerID, msg)
	return msg, nil
}

// TakeOver hands the thread to human operators. Every stored message is
// rewritten as human-owned.
func (s *Service) TakeOver(ctx context.Context, operator *user.User, customerID string) error {
	if !operator.Role.IsOperator() {
		return xerrors.ErrForbidden
	}

	if err := s.repo.SetOwnership(ctx, customerID, chat.OwnedByHuman); err != nil {
		return fmt.Errorf("failed to take over thread: %w", err)
	}

	s.logger.Info("thread taken over",
		zap.String("customer_id", customerID),
		zap.String("operator_id", operator.ID),
	)
	return nil
}

// Release hands the thread back to the assistant and clears needs-attention
// across the history, so the next customer message is processed again.
func (s *Service) Release(ctx context.Context, operator *user.User, customerID string) error {
	if !operator.Role.IsOperator() {
		return xerrors.ErrForbidden
	}

	if err := s.repo.SetOwnership(ctx, customerID, chat.OwnedByAssistant); err != nil {
		return fmt.Errorf("failed to release thread: %w", err)
	}

	s.logger.Info("thread released to assistant",
		zap.String("customer_id", customerID),
		zap.String("operator_id", operator.ID),
	)
	return nil
}

// GetThread returns the thread view. Customers can only read their own
// thread; operators can read any.
func (s *Service) GetThread(ctx context.Context, requester *user.User, customerID string) (*chat.ThreadView, error) {
	if requester.Role == user.RoleCustomer && requester.ID != customerID {
		return nil, xerrors.ErrForbidden
	}
	return s.view(ctx, customerID, "")
}

// ListThreads returns every thread summary for operator dashboards.
func (s *Service) ListThreads(ctx context.Context) ([]chat.AttentionItem, error) {
	return s.repo.ListThreadSummaries(ctx)
}

// ListThreadsNeedingAttention filters threads an operator should look at:
// the latest message is flagged, or the thread is human-owned but nobody
// has it open.
func (s *Service) ListThreadsNeedingAttention(ctx context.Context) ([]chat.AttentionItem, error) {
	items, err := s.repo.ListThreadSummaries(ctx)
	if err != nil {
		return nil, err
	}

	var needing []chat.AttentionItem
	for _, it := range items {
		if s.needsAttention(&it) {
			needing = append(needing, it)
		}
	}
	return needing, nil
}

// NotifyOrderEvent appends an order lifecycle notice to the customer's
// thread. Notices are informational: they never escalate and never flag
// attention, and they carry whatever ownership state the thread is in.
func (s *Service) NotifyOrderEvent(ctx context.Context, customerID, staffID, text string) error {
	msg := &chat.Message{
		ID:         ulid.Make().String(),
		SenderID:   staffID,
		SenderName: "Staff Support",
		SenderRole: chat.SenderStaff,
		Text:       text,
	}

	if err := s.repo.AppendMessage(ctx, customerID, msg); err != nil {
		return fmt.Errorf("failed to append order notice: %w", err)
	}

	s.pushMessage(customerID, msg)
	return nil
}

func (s *Service) needsAttention(it *chat.AttentionItem) bool {
	if it.LastMessage != nil && it.LastMessage.NeedsAttention {
		return true
	}
	if it.Ownership == chat.OwnedByHuman && s.presence != nil && !s.presence.IsViewing(it.CustomerID) {
		return true
	}
	return false
}

func (s *Service) view(ctx context.Context, customerID, customerName string) (*chat.ThreadView, error) {
	thread, err := s.repo.GetThread(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}

	last := thread.LastMessage()
	return &chat.ThreadView{
		CustomerID:     customerID,
		CustomerName:   customerName,
		Ownership:      thread.Ownership,
		Messages:       thread.Messages,
		NeedsAttention: last != nil && last.NeedsAttention,
	}, nil
}

func (s *Service) pushMessage(customerID string, m *chat.Message) {
	if s.push == nil {
		return
	}
	s.push.PushChatMessage(customerID, &wstypes.ChatMessageData{
		CustomerID:     customerID,
		MessageID:      m.ID,
		SenderRole:     string(m.SenderRole),
		Text:           m.Text,
		IsAutomated:    m.IsAutomated,
		NeedsAttention: m.NeedsAttention,
		Timestamp:      m.Timestamp,
	})
}

func (s *Service) pushAttention(customerID, reason string) {
	if s.push == nil {
		return
	}
	s.push.PushAttention(&wstypes.AttentionData{
		CustomerID: customerID,
		Reason:     reason,
	})
}
