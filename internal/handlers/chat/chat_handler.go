// internal/handlers/chat/chat_handler.go
package chat

import (
	"net/http"

	"rayslaund-service/internal/domain/chat"
	"rayslaund-service/internal/middleware"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/pkg/response"
	"rayslaund-service/internal/pkg/session"
	chatUsecase "rayslaund-service/internal/service/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chatService *chatUsecase.Service
	rateLimiter *session.RateLimiter
	logger      *zap.Logger
}

func NewChatHandler(chatService *chatUsecase.Service, rateLimiter *session.RateLimiter, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// SendMessage appends a customer message and returns the updated thread,
// including the automated reply when the assistant still owns it
func (h *ChatHandler) SendMessage(c *gin.Context) {
	requester := middleware.Requester(c)

	var req chat.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	allowed, err := h.rateLimiter.CheckChatAttempt(c.Request.Context(), requester.ID)
	if err != nil {
		h.logger.Warn("chat rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		response.Error(c, http.StatusTooManyRequests, "too many messages, slow down", nil)
		return
	}

	view, err := h.chatService.SendCustomerMessage(c.Request.Context(), requester, req.Text)
	if err != nil {
		h.logger.Error("failed to send message",
			zap.String("customer_id", requester.ID),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "failed to send message", err)
		return
	}

	response.Success(c, http.StatusOK, "message sent", view)
}

// GetMyThread returns the requesting customer's thread
func (h *ChatHandler) GetMyThread(c *gin.Context) {
	requester := middleware.Requester(c)

	view, err := h.chatService.GetThread(c.Request.Context(), requester, requester.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get thread", err)
		return
	}

	response.Success(c, http.StatusOK, "thread retrieved", view)
}

// GetThread returns any customer's thread (staff/admin)
func (h *ChatHandler) GetThread(c *gin.Context) {
	customerID := c.Param("customer_id")

	view, err := h.chatService.GetThread(c.Request.Context(), middleware.Requester(c), customerID)
	if err != nil {
		writeChatError(c, err, "failed to get thread")
		return
	}

	response.Success(c, http.StatusOK, "thread retrieved", view)
}

// ListThreads returns every thread summary (staff/admin)
func (h *ChatHandler) ListThreads(c *gin.Context) {
	items, err := h.chatService.ListThreads(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list threads", err)
		return
	}

	response.Success(c, http.StatusOK, "threads retrieved", items)
}

// ListAttention returns threads an operator should look at (staff/admin)
func (h *ChatHandler) ListAttention(c *gin.Context) {
	items, err := h.chatService.ListThreadsNeedingAttention(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list attention threads", err)
		return
	}

	response.Success(c, http.StatusOK, "attention threads retrieved", items)
}

// Reply appends an operator reply; replying takes the thread over (staff/admin)
func (h *ChatHandler) Reply(c *gin.Context) {
	customerID := c.Param("customer_id")

	var req chat.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	msg, err := h.chatService.SendOperatorReply(c.Request.Context(), middleware.Requester(c), customerID, req.Text)
	if err != nil {
		writeChatError(c, err, "failed to send reply")
		return
	}

	response.Success(c, http.StatusOK, "reply sent", msg)
}

// TakeOver hands a thread to human operators (staff/admin)
func (h *ChatHandler) TakeOver(c *gin.Context) {
	customerID := c.Param("customer_id")

	if err := h.chatService.TakeOver(c.Request.Context(), middleware.Requester(c), customerID); err != nil {
		writeChatError(c, err, "failed to take over thread")
		return
	}

	response.Success(c, http.StatusOK, "thread taken over", nil)
}

// Release hands a thread back to the assistant (staff/admin)
func (h *ChatHandler) Release(c *gin.Context) {
	customerID := c.Param("customer_id")

	if err := h.chatService.Release(c.Request.Context(), middleware.Requester(c), customerID); err != nil {
		writeChatError(c, err, "failed to release thread")
		return
	}

	response.Success(c, http.StatusOK, "thread released", nil)
}

func writeChatError(c *gin.Context, err error, message string) {
	switch {
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.NotFound(c, "thread not found")
	case xerrors.Is(err, xerrors.ErrForbidden):
		response.Forbidden(c, "not allowed")
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}
