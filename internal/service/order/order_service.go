// internal/service/order/order_service.go
package order

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"rayslaund-service/internal/domain/order"
	"rayslaund-service/internal/domain/user"
	wstypes "rayslaund-service/internal/domain/websocket"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Repository is the order slice of the record store.
type Repository interface {
	Create(ctx context.Context, o *order.Order) error
	FindByID(ctx context.Context, id string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error)
	ListActive(ctx context.Context) ([]order.Order, error)
	List(ctx context.Context, filters *order.OrderListFilters) ([]order.Order, int64, error)
	RevenueSummary(ctx context.Context) (*order.RevenueSummary, error)
}

// ThreadNotifier appends a customer-facing notice to the customer's support
// thread. The engine emits through this port so status changes and their
// notifications share one write path with the chat arbiter.
type ThreadNotifier interface {
	NotifyOrderEvent(ctx context.Context, customerID, staffID, text string) error
}

// Broadcaster pushes order lifecycle events to connected dashboards.
type Broadcaster interface {
	PushOrderStatus(customerID string, data *wstypes.OrderStatusData)
}

// Service owns the order lifecycle state machine:
// PENDING -> PICKING_UP -> WASHING -> DELIVERY -> DELIVERED, one step at a
// time, forward only. ConfirmDelivery is the single sanctioned override.
type Service struct {
	repo     Repository
	notifier ThreadNotifier
	push     Broadcaster
	logger   *zap.Logger
}

func NewService(repo Repository, notifier ThreadNotifier, push Broadcaster, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		push:     push,
		logger:   logger,
	}
}

// CreateOrder places a new order at PENDING. The total is the sum of
// price x quantity at creation time and is never recomputed.
func (s *Service) CreateOrder(ctx context.Context, customer *user.User, req *order.CreateOrderRequest) (*order.Order, error) {
	if len(req.Items) == 0 {
		return nil, xerrors.ErrInvalidInput
	}

	var items []order.Item
	var total float64
	for _, it := range req.Items {
		items = append(items, order.Item{
			ID:       ulid.Make().String(),
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
		total += it.Price * float64(it.Quantity)
	}

	o := &order.Order{
		ID:             "RD-" + ulid.Make().String(),
		CustomerID:     customer.ID,
		CustomerName:   customer.FullName,
		Items:          items,
		TotalAmount:    total,
		Status:         order.StatusPending,
		PickupLocation: req.PickupLocation,
		DeliveryCode:   fmt.Sprintf("%04d", rand.IntN(9000)+1000),
	}

	if err := s.repo.Create(ctx, o); err != nil {
		s.logger.Error("failed to create order", zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.Float64("total_amount", o.TotalAmount),
	)

	s.broadcast(o)
	return o, nil
}

// Advance moves an order to the single next status and records the acting
// staff member. Advancing a terminal order is a silent no-op: callers gate
// the action on current state, the engine never raises for it.
func (s *Service) Advance(ctx context.Context, orderID string, staff *user.User) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, ok := o.Status.Next()
	if !ok {
		return o, nil
	}

	prev := o.Status
	o.Status = next
	o.StaffID = sql.NullString{String: staff.ID, Valid: true}
	if next == order.StatusDelivered {
		o.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	if err := s.repo.Update(ctx, o); err != nil {
		s.logger.Error("failed to advance order", zap.Error(err), zap.String("order_id", o.ID))
		return nil, fmt.Errorf("failed to advance order: %w", err)
	}

	s.logger.Info("order advanced",
		zap.String("order_id", o.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.String("staff_id", staff.ID),
	)

	if text := transitionNotice(o, prev, next); text != "" {
		if err := s.notifier.NotifyOrderEvent(ctx, o.CustomerID, staff.ID, text); err != nil {
			// The status change is already committed; a lost notice is not
			// worth failing the transition over.
			s.logger.Error("failed to append order notice",
				zap.Error(err),
				zap.String("order_id", o.ID),
			)
		}
	}

	s.broadcast(o)
	return o, nil
}

// ConfirmDelivery is the customer's terminal confirmation: it forces the
// order to DELIVERED regardless of current status, stamps completion and
// sets the confirmed flag. The verification code itself is exchanged
// verbally; no comparison happens here.
func (s *Service) ConfirmDelivery(ctx context.Context, orderID string, customer *user.User) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customer.ID {
		return nil, xerrors.ErrForbidden
	}

	o.Status = order.StatusDelivered
	o.ConfirmedByCustomer = true
	o.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}

	if err := s.repo.Update(ctx, o); err != nil {
		s.logger.Error("failed to confirm delivery", zap.Error(err), zap.String("order_id", o.ID))
		return nil, fmt.Errorf("failed to confirm delivery: %w", err)
	}

	s.logger.Info("delivery confirmed",
		zap.String("order_id", o.ID),
		zap.String("customer_id", customer.ID),
	)

	s.broadcast(o)
	return o, nil
}

// GetOrder retrieves one order; customers may only read their own.
func (s *Service) GetOrder(ctx context.Context, orderID string, requester *user.User) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if requester.Role == user.RoleCustomer && o.CustomerID != requester.ID {
		return nil, xerrors.ErrForbidden
	}
	return o, nil
}

// ListMyOrders retrieves the requesting customer's orders
func (s *Service) ListMyOrders(ctx context.Context, customerID string) ([]order.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// ListActive retrieves all non-terminal orders for the staff board
func (s *Service) ListActive(ctx context.Context) ([]order.Order, error) {
	return s.repo.ListActive(ctx)
}

// ListOrders retrieves orders with filters/pagination for the admin board
func (s *Service) ListOrders(ctx context.Context, filters *order.OrderListFilters) (*order.OrderListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}

	orders, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &order.OrderListResponse{
		Orders:     orders,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// RevenueSummary aggregates revenue over delivered orders
func (s *Service) RevenueSummary(ctx context.Context) (*order.RevenueSummary, error) {
	return s.repo.RevenueSummary(ctx)
}

func (s *Service) broadcast(o *order.Order) {
	if s.push == nil {
		return
	}
	s.push.PushOrderStatus(o.CustomerID, &wstypes.OrderStatusData{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Status:     string(o.Status),
	})
}

// transitionNotice returns the customer-facing notice for a transition, or
// "" for transitions that emit none. The final DELIVERY -> DELIVERED step
// is silent: that close-out normally belongs to the customer's own
// confirmation.
func transitionNotice(o *order.Order, from, to order.Status) string {
	switch {
	case from == order.StatusPending && to == order.StatusPickingUp:
		return fmt.Sprintf("🚀 Your order #%s has been accepted! Our rider is now heading to your location for pickup.", o.ID)
	case from == order.StatusPickingUp && to == order.StatusWashing:
		return fmt.Sprintf("🫧 Update: Order #%s has arrived at our facility and the washing process has started!", o.ID)
	case from == order.StatusWashing && to == order.StatusDelivery:
		return fmt.Sprintf("🚚 Fresh and Clean! Order #%s is out for delivery. Please have your verification code %s ready.", o.ID, o.DeliveryCode)
	}
	return ""
}
