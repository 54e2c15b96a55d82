// internal/service/assistant/service.go
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rayslaund-service/internal/domain/chat"

	"go.uber.org/zap"
)

// Reply is the generator's answer: the text to append and whether the
// conversation should be handed to a human.
type Reply struct {
	Text       string
	NeedsHuman bool
}

// Responder is the port the chat arbiter calls. Implementations never
// return an error: a failed generation degrades to the fallback text with
// NeedsHuman forced true, so failure always escalates.
type Responder interface {
	GenerateReply(ctx context.Context, userMessage string, history []chat.Message) Reply
}

type Config struct {
	APIKey       string
	Model        string
	Endpoint     string
	Timeout      time.Duration
	ContactPhone string
}

// Service calls the generateContent REST endpoint of the generative
// language API.
type Service struct {
	cfg         Config
	client      *http.Client
	instruction string
	logger      *zap.Logger
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Service{
		cfg:         cfg,
		client:      &http.Client{Timeout: timeout},
		instruction: systemInstruction(cfg.ContactPhone),
		logger:      logger,
	}
}

// --- wire types ---

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// GenerateReply asks the model for a support answer. The prior conversation
// is replayed as alternating user/model turns; the latest customer message
// goes last.
func (s *Service) GenerateReply(ctx context.Context, userMessage string, history []chat.Message) Reply {
	text, err := s.call(ctx, userMessage, history)
	if err != nil {
		s.logger.Warn("assistant call failed, substituting fallback",
			zap.Error(err),
		)
		return Reply{Text: s.FallbackText(), NeedsHuman: true}
	}

	if text == "" {
		text = "I'm sorry, I'm having trouble connecting right now. Please try again or call us."
	}

	return Reply{Text: text, NeedsHuman: needsHuman(userMessage, text)}
}

// FallbackText is the fixed substitute answer used when the generator is
// unreachable.
func (s *Service) FallbackText() string {
	return "Our staff will be with you shortly. Please feel free to call us at " + s.cfg.ContactPhone
}

func (s *Service) call(ctx context.Context, userMessage string, history []chat.Message) (string, error) {
	req := generateRequest{
		SystemInstruction: &generateContent{Parts: []generatePart{{Text: s.instruction}}},
	}
	req.GenerationConfig.Temperature = 0.7

	for _, m := range history {
		role := "user"
		if m.IsAutomated {
			role = "model"
		}
		req.Contents = append(req.Contents, generateContent{
			Role:  role,
			Parts: []generatePart{{Text: m.Text}},
		})
	}
	req.Contents = append(req.Contents, generateContent{
		Role:  "user",
		Parts: []generatePart{{Text: userMessage}},
	})

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.cfg.Endpoint, s.cfg.Model, s.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}

// needsHuman flags replies that should hand the thread to an operator:
// either the model announced a handoff or the customer asked for one.
func needsHuman(userMessage, replyText string) bool {
	reply := strings.ToLower(replyText)
	msg := strings.ToLower(userMessage)

	return strings.Contains(reply, "team member") ||
		strings.Contains(msg, "human") ||
		strings.Contains(msg, "admin") ||
		strings.Contains(msg, "manager")
}
