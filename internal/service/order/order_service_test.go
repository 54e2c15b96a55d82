package order

import (
	"context"
	"testing"

	"rayslaund-service/internal/domain/order"
	"rayslaund-service/internal/domain/user"
	wstypes "rayslaund-service/internal/domain/websocket"
	xerrors "rayslaund-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrderRepo struct {
	orders map[string]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*order.Order)}
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) Update(_ context.Context, o *order.Order) error {
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) ListByCustomer(_ context.Context, customerID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListActive(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.orders {
		if !o.Status.IsTerminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) List(_ context.Context, _ *order.OrderListFilters) ([]order.Order, int64, error) {
	var out []order.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) RevenueSummary(_ context.Context) (*order.RevenueSummary, error) {
	return &order.RevenueSummary{}, nil
}

type recordedNotice struct {
	customerID string
	staffID    string
	text       string
}

type fakeNotifier struct {
	notices []recordedNotice
}

func (f *fakeNotifier) NotifyOrderEvent(_ context.Context, customerID, staffID, text string) error {
	f.notices = append(f.notices, recordedNotice{customerID, staffID, text})
	return nil
}

type fakeOrderBroadcaster struct {
	pushed []*wstypes.OrderStatusData
}

func (f *fakeOrderBroadcaster) PushOrderStatus(_ string, data *wstypes.OrderStatusData) {
	f.pushed = append(f.pushed, data)
}

func newOrderFixture() (*Service, *fakeOrderRepo, *fakeNotifier, *fakeOrderBroadcaster) {
	repo := newFakeOrderRepo()
	notifier := &fakeNotifier{}
	push := &fakeOrderBroadcaster{}
	svc := NewService(repo, notifier, push, zap.NewNop())
	return svc, repo, notifier, push
}

func customerFor(id, name string) *user.User {
	return &user.User{ID: id, FullName: name, Role: user.RoleCustomer}
}

func staffFor(id string) *user.User {
	return &user.User{ID: id, FullName: "Ray Staff", Role: user.RoleStaff}
}

func TestCreateOrder(t *testing.T) {
	svc, repo, _, push := newOrderFixture()

	o, err := svc.CreateOrder(context.Background(), customerFor("cust-1", "Jane"), &order.CreateOrderRequest{
		Items: []order.CreateOrderItem{
			{Name: "Wash, Dry & Fold", Price: 90, Quantity: 3},
			{Name: "Duvet Cleaning", Price: 500, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Equal(t, "Jane", o.CustomerName)
	assert.InDelta(t, 770.0, o.TotalAmount, 0.001)
	assert.Regexp(t, `^RD-`, o.ID)
	assert.Regexp(t, `^\d{4}$`, o.DeliveryCode)
	assert.False(t, o.ConfirmedByCustomer)

	stored, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
	require.Len(t, push.pushed, 1)
	assert.Equal(t, string(order.StatusPending), push.pushed[0].Status)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc, _, _, _ := newOrderFixture()

	_, err := svc.CreateOrder(context.Background(), customerFor("cust-1", "Jane"), &order.CreateOrderRequest{})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestAdvanceSingleStep(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	o, err := svc.CreateOrder(context.Background(), customerFor("cust-1", "Jane"), &order.CreateOrderRequest{
		Items: []order.CreateOrderItem{{Name: "Wash", Price: 100, Quantity: 1}},
	})
	require.NoError(t, err)

	advanced, err := svc.Advance(context.Background(), o.ID, staffFor("staff-1"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusPickingUp, advanced.Status)
	assert.Equal(t, "staff-1", advanced.StaffID.String)

	stored, _ := repo.FindByID(context.Background(), o.ID)
	assert.Equal(t, order.StatusPickingUp, stored.Status)
}

func TestAdvanceTerminalIsNoOp(t *testing.T) {
	svc, repo, notifier, _ := newOrderFixture()

	o := &order.Order{ID: "RD-1", CustomerID: "cust-1", Status: order.StatusDelivered}
	require.NoError(t, repo.Create(context.Background(), o))

	got, err := svc.Advance(context.Background(), "RD-1", staffFor("staff-1"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, got.Status)
	assert.False(t, got.StaffID.Valid)
	assert.Empty(t, notifier.notices)
}

func TestAdvanceEmitsThreeNoticesAcrossFullLifecycle(t *testing.T) {
	svc, _, notifier, _ := newOrderFixture()

	o, err := svc.CreateOrder(context.Background(), customerFor("cust-1", "Jane"), &order.CreateOrderRequest{
		Items: []order.CreateOrderItem{{Name: "Wash", Price: 100, Quantity: 1}},
	})
	require.NoError(t, err)

	staff := staffFor("staff-1")
	for i := 0; i < 4; i++ {
		_, err := svc.Advance(context.Background(), o.ID, staff)
		require.NoError(t, err)
	}

	// PENDING->PICKING_UP, PICKING_UP->WASHING and WASHING->DELIVERY notify;
	// the final DELIVERY->DELIVERED step is silent.
	require.Len(t, notifier.notices, 3)
	assert.Contains(t, notifier.notices[0].text, "accepted")
	assert.Contains(t, notifier.notices[1].text, "washing")
	assert.Contains(t, notifier.notices[2].text, o.DeliveryCode)
	for _, n := range notifier.notices {
		assert.Equal(t, "cust-1", n.customerID)
		assert.Equal(t, "staff-1", n.staffID)
	}
}

func TestAdvanceStampsCompletedAtOnlyWhenDelivered(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	o, err := svc.CreateOrder(context.Background(), customerFor("cust-1", "Jane"), &order.CreateOrderRequest{
		Items: []order.CreateOrderItem{{Name: "Wash", Price: 100, Quantity: 1}},
	})
	require.NoError(t, err)

	staff := staffFor("staff-1")
	for i := 0; i < 3; i++ {
		_, err := svc.Advance(context.Background(), o.ID, staff)
		require.NoError(t, err)
	}

	mid, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivery, mid.Status)
	assert.False(t, mid.CompletedAt.Valid)

	final, err := svc.Advance(context.Background(), o.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, final.Status)
	assert.True(t, final.CompletedAt.Valid)

	stored, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.CompletedAt.Valid)
}

func TestConfirmDeliveryOverridesStatus(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	o := &order.Order{ID: "RD-2", CustomerID: "cust-1", Status: order.StatusWashing}
	require.NoError(t, repo.Create(context.Background(), o))

	confirmed, err := svc.ConfirmDelivery(context.Background(), "RD-2", customerFor("cust-1", "Jane"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, confirmed.Status)
	assert.True(t, confirmed.ConfirmedByCustomer)
	assert.True(t, confirmed.CompletedAt.Valid)
}

func TestConfirmDeliveryRejectsOtherCustomer(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	o := &order.Order{ID: "RD-3", CustomerID: "cust-1", Status: order.StatusDelivery}
	require.NoError(t, repo.Create(context.Background(), o))

	_, err := svc.ConfirmDelivery(context.Background(), "RD-3", customerFor("cust-2", "Mallory"))
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestGetOrderCustomerScope(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	o := &order.Order{ID: "RD-4", CustomerID: "cust-1", Status: order.StatusPending}
	require.NoError(t, repo.Create(context.Background(), o))

	_, err := svc.GetOrder(context.Background(), "RD-4", customerFor("cust-2", "Mallory"))
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	got, err := svc.GetOrder(context.Background(), "RD-4", staffFor("staff-1"))
	require.NoError(t, err)
	assert.Equal(t, "RD-4", got.ID)
}
