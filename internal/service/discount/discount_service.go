// internal/service/discount/discount_service.go
package discount

import (
	"context"
	"fmt"

	"rayslaund-service/internal/domain/discount"
	"rayslaund-service/internal/domain/user"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Repository is the discount slice of the record store.
type Repository interface {
	Create(ctx context.Context, o *discount.Offer) error
	ListByUser(ctx context.Context, userID string) ([]discount.Offer, error)
	ListAll(ctx context.Context) ([]discount.Offer, error)
	Claim(ctx context.Context, id, userID string) error
}

// ThreadNotifier announces the grant in the customer's support thread.
type ThreadNotifier interface {
	NotifyOrderEvent(ctx context.Context, customerID, staffID, text string) error
}

type Service struct {
	repo     Repository
	notifier ThreadNotifier
	logger   *zap.Logger
}

func NewService(repo Repository, notifier ThreadNotifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Grant issues a discount offer to a customer and drops an announcement in
// their support thread. Admin only.
func (s *Service) Grant(ctx context.Context, admin *user.User, req *discount.GrantRequest) (*discount.Offer, error) {
	if admin.Role != user.RoleAdmin {
		return nil, xerrors.ErrForbidden
	}

	o := &discount.Offer{
		ID:      ulid.Make().String(),
		UserID:  req.UserID,
		Amount:  req.Amount,
		Message: req.Message,
	}

	if err := s.repo.Create(ctx, o); err != nil {
		s.logger.Error("failed to grant discount", zap.Error(err))
		return nil, fmt.Errorf("failed to grant discount: %w", err)
	}

	s.logger.Info("discount granted",
		zap.String("offer_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Float64("amount", o.Amount),
	)

	notice := fmt.Sprintf("🎁 DISCOUNT UNLOCKED: %s (Ksh %.0f off your next order!)", o.Message, o.Amount)
	if err := s.notifier.NotifyOrderEvent(ctx, o.UserID, admin.ID, notice); err != nil {
		s.logger.Error("failed to announce discount",
			zap.Error(err),
			zap.String("offer_id", o.ID),
		)
	}

	return o, nil
}

// ListMine retrieves the requesting customer's offers.
func (s *Service) ListMine(ctx context.Context, userID string) ([]discount.Offer, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListAll retrieves every offer for the admin board.
func (s *Service) ListAll(ctx context.Context) ([]discount.Offer, error) {
	return s.repo.ListAll(ctx)
}

// Claim marks one of the caller's offers as used.
func (s *Service) Claim(ctx context.Context, userID, offerID string) error {
	if err := s.repo.Claim(ctx, offerID, userID); err != nil {
		return err
	}

	s.logger.Info("discount claimed",
		zap.String("offer_id", offerID),
		zap.String("user_id", userID),
	)
	return nil
}

// StatusByUser summarises every customer's offers for the admin board.
func (s *Service) StatusByUser(ctx context.Context) (map[string]discount.Status, error) {
	offers, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string][]discount.Offer)
	for _, o := range offers {
		byUser[o.UserID] = append(byUser[o.UserID], o)
	}

	statuses := make(map[string]discount.Status, len(byUser))
	for userID, userOffers := range byUser {
		statuses[userID] = StatusFor(userOffers)
	}
	return statuses, nil
}

// StatusFor summarises a user's offers: Pending beats Claimed beats None.
func StatusFor(offers []discount.Offer) discount.Status {
	status := discount.StatusNone
	for _, o := range offers {
		if !o.Claimed {
			return discount.StatusPending
		}
		status = discount.StatusClaimed
	}
	return status
}
