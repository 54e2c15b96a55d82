package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rayslaund-service/internal/domain/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(endpoint string) *Service {
	return NewService(Config{
		APIKey:       "test-key",
		Model:        "test-model",
		Endpoint:     endpoint,
		Timeout:      2 * time.Second,
		ContactPhone: "0729022408",
	}, zap.NewNop())
}

func generateServer(t *testing.T, replyText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		require.NotEmpty(t, req.Contents)
		assert.Equal(t, "user", req.Contents[len(req.Contents)-1].Role)

		resp := generateResponse{}
		resp.Candidates = []struct {
			Content generateContent `json:"content"`
		}{
			{Content: generateContent{Role: "model", Parts: []generatePart{{Text: replyText}}}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerateReply(t *testing.T) {
	ts := generateServer(t, "Wash, dry and fold is Ksh 90 per kg.")
	defer ts.Close()

	svc := newTestService(ts.URL)
	reply := svc.GenerateReply(context.Background(), "how much is a wash?", nil)

	assert.Equal(t, "Wash, dry and fold is Ksh 90 per kg.", reply.Text)
	assert.False(t, reply.NeedsHuman)
}

func TestGenerateReplyReplaysHistoryAsTurns(t *testing.T) {
	var got generateRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{})
	}))
	defer ts.Close()

	svc := newTestService(ts.URL)
	history := []chat.Message{
		{Text: "hi", SenderRole: chat.SenderCustomer},
		{Text: "hello, how can I help?", IsAutomated: true, SenderRole: chat.SenderAssistant},
	}
	svc.GenerateReply(context.Background(), "prices?", history)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "user", got.Contents[2].Role)
	assert.Equal(t, "prices?", got.Contents[2].Parts[0].Text)
}

func TestGenerateReplyFailureFallsBackAndEscalates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	svc := newTestService(ts.URL)
	reply := svc.GenerateReply(context.Background(), "hello", nil)

	assert.Equal(t, "Our staff will be with you shortly. Please feel free to call us at 0729022408", reply.Text)
	assert.True(t, reply.NeedsHuman)
}

func TestGenerateReplyHandoffPhraseEscalates(t *testing.T) {
	ts := generateServer(t, "I'll notify a team member to take over right away.")
	defer ts.Close()

	svc := newTestService(ts.URL)
	reply := svc.GenerateReply(context.Background(), "this is not working", nil)

	assert.True(t, reply.NeedsHuman)
}

func TestNeedsHuman(t *testing.T) {
	tests := []struct {
		name    string
		message string
		reply   string
		want    bool
	}{
		{"plain answer", "what are your prices?", "Ksh 90 per kg.", false},
		{"handoff phrase in reply", "help", "I'll notify a team member to take over.", true},
		{"customer asks for human", "I want a human", "Sure thing!", true},
		{"customer asks for admin", "get me the ADMIN", "Sure thing!", true},
		{"customer asks for manager", "Manager, now", "Sure thing!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsHuman(tt.message, tt.reply))
		})
	}
}

func TestSystemInstructionCarriesCatalogAndHandoff(t *testing.T) {
	instruction := systemInstruction("0729022408")

	assert.Contains(t, instruction, "Ray's Laundromat")
	assert.Contains(t, instruction, "Wash, Dry & Fold")
	assert.Contains(t, instruction, "0729022408")
	assert.Contains(t, instruction, "I'll notify a team member to take over right away.")
}
