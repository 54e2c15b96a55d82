package chat

import (
	"context"
	"testing"

	"rayslaund-service/internal/domain/chat"
	"rayslaund-service/internal/domain/user"
	wstypes "rayslaund-service/internal/domain/websocket"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/service/assistant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChatRepo mirrors the store's ownership semantics in memory: the
// revision gate, the implicit takeover on operator replies and the
// history rewrite on ownership toggles.
type fakeChatRepo struct {
	threads map[string]*fakeThread
}

type fakeThread struct {
	ownership chat.Ownership
	rev       int64
	messages  []chat.Message
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{threads: make(map[string]*fakeThread)}
}

func (f *fakeChatRepo) thread(customerID string) *fakeThread {
	t, ok := f.threads[customerID]
	if !ok {
		t = &fakeThread{ownership: chat.OwnedByAssistant}
		f.threads[customerID] = t
	}
	return t
}

func (f *fakeChatRepo) GetThread(_ context.Context, customerID string) (*chat.Thread, error) {
	t := f.thread(customerID)
	msgs := make([]chat.Message, len(t.messages))
	copy(msgs, t.messages)
	return &chat.Thread{
		CustomerID:   customerID,
		Ownership:    t.ownership,
		OwnershipRev: t.rev,
		Messages:     msgs,
	}, nil
}

func (f *fakeChatRepo) AppendMessage(_ context.Context, customerID string, m *chat.Message) error {
	t := f.thread(customerID)
	m.IsHumanOwned = t.ownership == chat.OwnedByHuman
	t.messages = append(t.messages, *m)
	return nil
}

func (f *fakeChatRepo) AppendAutomatedReply(_ context.Context, customerID string, m *chat.Message, expectedRev int64) (bool, error) {
	t := f.thread(customerID)
	if t.rev != expectedRev || t.ownership == chat.OwnedByHuman {
		return false, nil
	}

	m.IsHumanOwned = false
	t.messages = append(t.messages, *m)

	if m.NeedsAttention {
		f.toggle(t, chat.OwnedByHuman)
		m.IsHumanOwned = true
	}
	return true, nil
}

func (f *fakeChatRepo) AppendOperatorMessage(_ context.Context, customerID string, m *chat.Message) error {
	t := f.thread(customerID)
	if t.ownership != chat.OwnedByHuman {
		f.toggle(t, chat.OwnedByHuman)
	}
	m.IsHumanOwned = true
	t.messages = append(t.messages, *m)
	return nil
}

func (f *fakeChatRepo) SetOwnership(_ context.Context, customerID string, ownership chat.Ownership) error {
	t := f.thread(customerID)
	if t.ownership == ownership {
		return nil
	}
	f.toggle(t, ownership)
	return nil
}

func (f *fakeChatRepo) toggle(t *fakeThread, ownership chat.Ownership) {
	t.ownership = ownership
	t.rev++
	human := ownership == chat.OwnedByHuman
	for i := range t.messages {
		t.messages[i].IsHumanOwned = human
		if !human {
			t.messages[i].NeedsAttention = false
		}
	}
}

func (f *fakeChatRepo) ListThreadSummaries(_ context.Context) ([]chat.AttentionItem, error) {
	var items []chat.AttentionItem
	for id, t := range f.threads {
		item := chat.AttentionItem{CustomerID: id, Ownership: t.ownership}
		if len(t.messages) > 0 {
			last := t.messages[len(t.messages)-1]
			item.LastMessage = &last
		}
		items = append(items, item)
	}
	return items, nil
}

// fakeResponder lets each test script the generator's behavior, including
// side effects that race the reply against a takeover.
type fakeResponder struct {
	calls int
	fn    func(userMessage string) assistant.Reply
}

func (f *fakeResponder) GenerateReply(_ context.Context, userMessage string, _ []chat.Message) assistant.Reply {
	f.calls++
	if f.fn != nil {
		return f.fn(userMessage)
	}
	return assistant.Reply{Text: "We open at 8am daily."}
}

type fakePresence struct {
	viewing map[string]bool
}

func (f *fakePresence) IsViewing(customerID string) bool {
	return f.viewing[customerID]
}

type fakeChatBroadcaster struct {
	messages  []*wstypes.ChatMessageData
	attention []*wstypes.AttentionData
}

func (f *fakeChatBroadcaster) PushChatMessage(_ string, data *wstypes.ChatMessageData) {
	f.messages = append(f.messages, data)
}

func (f *fakeChatBroadcaster) PushAttention(data *wstypes.AttentionData) {
	f.attention = append(f.attention, data)
}

func newChatFixture() (*Service, *fakeChatRepo, *fakeResponder, *fakePresence, *fakeChatBroadcaster) {
	repo := newFakeChatRepo()
	responder := &fakeResponder{}
	presence := &fakePresence{viewing: make(map[string]bool)}
	push := &fakeChatBroadcaster{}
	svc := NewService(repo, responder, presence, push, zap.NewNop())
	return svc, repo, responder, presence, push
}

func testCustomer() *user.User {
	return &user.User{ID: "cust-1", FullName: "Jane", Role: user.RoleCustomer}
}

func testStaff() *user.User {
	return &user.User{ID: "staff-1", FullName: "Ray Staff", Role: user.RoleStaff}
}

func TestCustomerMessageGetsAutomatedReply(t *testing.T) {
	svc, repo, responder, _, push := newChatFixture()

	view, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "when do you open?")
	require.NoError(t, err)

	assert.Equal(t, 1, responder.calls)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, chat.SenderCustomer, view.Messages[0].SenderRole)
	assert.Equal(t, chat.SenderAssistant, view.Messages[1].SenderRole)
	assert.True(t, view.Messages[1].IsAutomated)
	assert.Equal(t, "We open at 8am daily.", view.Messages[1].Text)
	assert.Equal(t, chat.OwnedByAssistant, view.Ownership)

	assert.Equal(t, chat.OwnedByAssistant, repo.thread("cust-1").ownership)
	assert.Len(t, push.messages, 2)
	assert.Empty(t, push.attention)
}

func TestHumanOwnedThreadSuppressesGeneration(t *testing.T) {
	svc, repo, responder, _, _ := newChatFixture()

	repo.thread("cust-1").ownership = chat.OwnedByHuman

	view, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "hello?")
	require.NoError(t, err)

	assert.Equal(t, 0, responder.calls)
	require.Len(t, view.Messages, 1)
	assert.True(t, view.Messages[0].IsHumanOwned)
	assert.Equal(t, chat.OwnedByHuman, view.Ownership)
}

func TestEscalationHandsThreadToHuman(t *testing.T) {
	svc, repo, responder, _, push := newChatFixture()

	responder.fn = func(string) assistant.Reply {
		return assistant.Reply{Text: "I'll notify a team member to take over right away.", NeedsHuman: true}
	}

	view, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "let me talk to a manager")
	require.NoError(t, err)

	require.Len(t, view.Messages, 2)
	assert.True(t, view.Messages[1].NeedsAttention)
	assert.True(t, view.NeedsAttention)
	assert.Equal(t, chat.OwnedByHuman, view.Ownership)
	assert.Equal(t, chat.OwnedByHuman, repo.thread("cust-1").ownership)
	require.Len(t, push.attention, 1)
	assert.Equal(t, "cust-1", push.attention[0].CustomerID)
}

func TestStaleAutomatedReplyIsDroppedAfterTakeover(t *testing.T) {
	svc, repo, responder, _, _ := newChatFixture()

	// The operator takes over while the generation is in flight.
	responder.fn = func(string) assistant.Reply {
		repo.toggle(repo.thread("cust-1"), chat.OwnedByHuman)
		return assistant.Reply{Text: "too late"}
	}

	view, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "anyone there?")
	require.NoError(t, err)

	require.Len(t, view.Messages, 1)
	assert.Equal(t, chat.SenderCustomer, view.Messages[0].SenderRole)
	assert.Equal(t, chat.OwnedByHuman, view.Ownership)
}

func TestOperatorReplyTakesOverImplicitly(t *testing.T) {
	svc, repo, _, _, _ := newChatFixture()

	_, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "hello")
	require.NoError(t, err)

	msg, err := svc.SendOperatorReply(context.Background(), testStaff(), "cust-1", "hi, how can I help?")
	require.NoError(t, err)
	assert.Equal(t, chat.SenderStaff, msg.SenderRole)
	assert.Equal(t, "Staff Support", msg.SenderName)

	thread := repo.thread("cust-1")
	assert.Equal(t, chat.OwnedByHuman, thread.ownership)
	for _, m := range thread.messages {
		assert.True(t, m.IsHumanOwned)
	}
}

func TestOperatorReplyRejectsCustomer(t *testing.T) {
	svc, _, _, _, _ := newChatFixture()

	_, err := svc.SendOperatorReply(context.Background(), testCustomer(), "cust-2", "sneaky")
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestReleaseClearsAttentionAndOwnership(t *testing.T) {
	svc, repo, responder, _, _ := newChatFixture()

	responder.fn = func(string) assistant.Reply {
		return assistant.Reply{Text: "Handing you over.", NeedsHuman: true}
	}
	_, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "manager please")
	require.NoError(t, err)
	require.Equal(t, chat.OwnedByHuman, repo.thread("cust-1").ownership)

	require.NoError(t, svc.Release(context.Background(), testStaff(), "cust-1"))

	thread := repo.thread("cust-1")
	assert.Equal(t, chat.OwnedByAssistant, thread.ownership)
	for _, m := range thread.messages {
		assert.False(t, m.IsHumanOwned)
		assert.False(t, m.NeedsAttention)
	}
}

func TestTakeOverRewritesHistory(t *testing.T) {
	svc, repo, _, _, _ := newChatFixture()

	_, err := svc.SendCustomerMessage(context.Background(), testCustomer(), "hello")
	require.NoError(t, err)

	require.NoError(t, svc.TakeOver(context.Background(), testStaff(), "cust-1"))

	thread := repo.thread("cust-1")
	assert.Equal(t, chat.OwnedByHuman, thread.ownership)
	for _, m := range thread.messages {
		assert.True(t, m.IsHumanOwned)
	}
}

func TestGetThreadCustomerScope(t *testing.T) {
	svc, _, _, _, _ := newChatFixture()

	_, err := svc.GetThread(context.Background(), testCustomer(), "cust-2")
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	_, err = svc.GetThread(context.Background(), testStaff(), "cust-2")
	assert.NoError(t, err)
}

func TestListThreadsNeedingAttention(t *testing.T) {
	svc, repo, _, presence, _ := newChatFixture()

	// Flagged last message: needs attention regardless of ownership.
	flagged := repo.thread("cust-flagged")
	flagged.messages = append(flagged.messages, chat.Message{ID: "m1", NeedsAttention: true})

	// Human-owned with nobody viewing: needs attention.
	unattended := repo.thread("cust-unattended")
	unattended.ownership = chat.OwnedByHuman
	unattended.messages = append(unattended.messages, chat.Message{ID: "m2"})

	// Human-owned but an operator has it open: covered.
	viewed := repo.thread("cust-viewed")
	viewed.ownership = chat.OwnedByHuman
	viewed.messages = append(viewed.messages, chat.Message{ID: "m3"})
	presence.viewing["cust-viewed"] = true

	// Assistant-owned, nothing flagged: fine.
	calm := repo.thread("cust-calm")
	calm.messages = append(calm.messages, chat.Message{ID: "m4"})

	items, err := svc.ListThreadsNeedingAttention(context.Background())
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, it := range items {
		ids[it.CustomerID] = true
	}
	assert.True(t, ids["cust-flagged"])
	assert.True(t, ids["cust-unattended"])
	assert.False(t, ids["cust-viewed"])
	assert.False(t, ids["cust-calm"])
}

func TestNotifyOrderEventNeverEscalates(t *testing.T) {
	svc, repo, _, _, _ := newChatFixture()

	require.NoError(t, svc.NotifyOrderEvent(context.Background(), "cust-1", "staff-1", "🚀 Your order has been accepted!"))

	thread := repo.thread("cust-1")
	require.Len(t, thread.messages, 1)
	assert.Equal(t, chat.SenderStaff, thread.messages[0].SenderRole)
	assert.False(t, thread.messages[0].NeedsAttention)
	assert.Equal(t, chat.OwnedByAssistant, thread.ownership)
}
