package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/service"
	"helpdesk-inbox/backend/pkg/errors"
	"helpdesk-inbox/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Inbox is satisfied by *service.InboxService.
type Inbox interface {
	ListConversations(ctx context.Context, operatorID, pageID string) ([]models.Conversation, error)
	GetConversation(ctx context.Context, operatorID string, conversationID uint) (*models.ConversationDetail, error)
	CustomerSummary(ctx context.Context, operatorID string, conversationID uint) (models.CustomerSummary, error)
}

// Replier is satisfied by *service.ReplyService.
type Replier interface {
	Reply(ctx context.Context, operatorID string, conversationID uint, text string) (*models.Message, error)
}

// ConversationHandler serves the operator inbox reads and replies.
type ConversationHandler struct {
	inbox   Inbox
	replies Replier
}

func NewConversationHandler(inbox Inbox, replies Replier) *ConversationHandler {
	return &ConversationHandler{inbox: inbox, replies: replies}
}

// RegisterRoutes registers the inbox routes behind auth.
func (h *ConversationHandler) RegisterRoutes(r gin.IRouter, auth gin.HandlerFunc) {
	conversations := r.Group("/api/conversations", auth)
	{
		conversations.GET("/:conversationId/customer", h.CustomerSummary)
	}

	messages := r.Group("/api/messages", auth)
	{
		messages.GET("/pages/:pageId/conversations", h.ListConversations)
		messages.GET("/conversations", h.ListConversations)
		messages.GET("/conversations/:conversationId", h.GetConversation)
		messages.POST("/conversations/:conversationId/messages", h.SendMessage)
	}
}

// CustomerSummary handles GET /api/conversations/:conversationId/customer
func (h *ConversationHandler) CustomerSummary(c *gin.Context) {
	id, ok := conversationID(c)
	if !ok {
		return
	}
	customer, err := h.inbox.CustomerSummary(c.Request.Context(), middleware.OperatorID(c), id)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// ListConversations takes the page id from the path or the pageId query parameter.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	pageID := c.Param("pageId")
	if pageID == "" {
		pageID = c.Query("pageId")
	}
	if pageID == "" {
		_ = c.Error(errors.NewBadRequestError("MISSING_PAGE_ID", "Missing pageId in query"))
		return
	}

	convs, err := h.inbox.ListConversations(c.Request.Context(), middleware.OperatorID(c), pageID)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetConversation handles GET /api/messages/conversations/:conversationId
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id, ok := conversationID(c)
	if !ok {
		return
	}
	detail, err := h.inbox.GetConversation(c.Request.Context(), middleware.OperatorID(c), id)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, detail)
}

// SendMessage handles POST /api/messages/conversations/:conversationId/messages
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	id, ok := conversationID(c)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewBadRequestError("INVALID_MESSAGE", "Message text is required").Wrap(err))
		return
	}

	msg, err := h.replies.Reply(c.Request.Context(), middleware.OperatorID(c), id, req.Text)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func conversationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("conversationId"), 10, 64)
	if err != nil || id == 0 {
		_ = c.Error(errors.NewBadRequestError("INVALID_CONVERSATION_ID", "Invalid conversation id"))
		return 0, false
	}
	return uint(id), true
}

func toAppError(err error) *errors.AppError {
	var sendErr *service.SendError
	switch {
	case stderrors.Is(err, service.ErrConversationNotFound):
		return errors.NewNotFoundError("CONVERSATION_NOT_FOUND", "Conversation not found")
	case stderrors.Is(err, service.ErrPageNotFound):
		return errors.NewNotFoundError("PAGE_NOT_FOUND", "Page not found")
	case stderrors.Is(err, service.ErrForbidden):
		return errors.NewForbiddenError("FORBIDDEN", "Conversation belongs to another operator")
	case stderrors.Is(err, service.ErrEmptyMessage):
		return errors.NewBadRequestError("INVALID_MESSAGE", "Message text is required")
	case stderrors.As(err, &sendErr):
		return errors.NewBadGatewayError("SEND_FAILED", "Could not deliver the message").Wrap(err)
	default:
		return errors.NewInternalServerError("SERVER_ERROR", "Server error").Wrap(err)
	}
}
