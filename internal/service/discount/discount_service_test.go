package discount

import (
	"context"
	"testing"

	"rayslaund-service/internal/domain/discount"
	"rayslaund-service/internal/domain/user"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDiscountRepo struct {
	offers map[string]*discount.Offer
}

func newFakeDiscountRepo() *fakeDiscountRepo {
	return &fakeDiscountRepo{offers: make(map[string]*discount.Offer)}
}

func (f *fakeDiscountRepo) Create(_ context.Context, o *discount.Offer) error {
	cp := *o
	f.offers[o.ID] = &cp
	return nil
}

func (f *fakeDiscountRepo) ListByUser(_ context.Context, userID string) ([]discount.Offer, error) {
	var out []discount.Offer
	for _, o := range f.offers {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeDiscountRepo) ListAll(_ context.Context) ([]discount.Offer, error) {
	var out []discount.Offer
	for _, o := range f.offers {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeDiscountRepo) Claim(_ context.Context, id, userID string) error {
	o, ok := f.offers[id]
	if !ok || o.UserID != userID || o.Claimed {
		return xerrors.ErrNotFound
	}
	o.Claimed = true
	return nil
}

type fakeDiscountNotifier struct {
	texts []string
}

func (f *fakeDiscountNotifier) NotifyOrderEvent(_ context.Context, _, _, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func admin() *user.User {
	return &user.User{ID: "admin-1", FullName: "Ray Admin", Role: user.RoleAdmin}
}

func TestGrantCreatesOfferAndAnnounces(t *testing.T) {
	repo := newFakeDiscountRepo()
	notifier := &fakeDiscountNotifier{}
	svc := NewService(repo, notifier, zap.NewNop())

	offer, err := svc.Grant(context.Background(), admin(), &discount.GrantRequest{
		UserID:  "cust-1",
		Amount:  200,
		Message: "Thanks for being a loyal customer",
	})
	require.NoError(t, err)
	assert.Equal(t, "cust-1", offer.UserID)
	assert.False(t, offer.Claimed)

	require.Len(t, notifier.texts, 1)
	assert.Contains(t, notifier.texts[0], "DISCOUNT UNLOCKED")
	assert.Contains(t, notifier.texts[0], "Thanks for being a loyal customer")
}

func TestGrantRequiresAdmin(t *testing.T) {
	svc := NewService(newFakeDiscountRepo(), &fakeDiscountNotifier{}, zap.NewNop())

	staff := &user.User{ID: "staff-1", Role: user.RoleStaff}
	_, err := svc.Grant(context.Background(), staff, &discount.GrantRequest{UserID: "cust-1", Amount: 100, Message: "nope"})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestClaimIsSingleUse(t *testing.T) {
	repo := newFakeDiscountRepo()
	svc := NewService(repo, &fakeDiscountNotifier{}, zap.NewNop())

	offer, err := svc.Grant(context.Background(), admin(), &discount.GrantRequest{UserID: "cust-1", Amount: 100, Message: "hi"})
	require.NoError(t, err)

	require.NoError(t, svc.Claim(context.Background(), "cust-1", offer.ID))
	assert.ErrorIs(t, svc.Claim(context.Background(), "cust-1", offer.ID), xerrors.ErrNotFound)
	assert.ErrorIs(t, svc.Claim(context.Background(), "cust-2", offer.ID), xerrors.ErrNotFound)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, discount.StatusNone, StatusFor(nil))
	assert.Equal(t, discount.StatusPending, StatusFor([]discount.Offer{{Claimed: true}, {Claimed: false}}))
	assert.Equal(t, discount.StatusClaimed, StatusFor([]discount.Offer{{Claimed: true}, {Claimed: true}}))
}
