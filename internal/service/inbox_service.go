package service

import (
	"context"
	"errors"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
)

// InboxService answers operator reads, scoped to the pages they own.
type InboxService struct {
	pages         *PageDirectory
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func NewInboxService(pages *PageDirectory, conversations repository.ConversationRepository, messages repository.MessageRepository) *InboxService {
	return &InboxService{pages: pages, conversations: conversations, messages: messages}
}

// ListConversations returns the page's conversations, most recent first.
func (s *InboxService) ListConversations(ctx context.Context, operatorID, pageID string) ([]models.Conversation, error) {
	if _, err := s.pages.Authorize(ctx, operatorID, pageID); err != nil {
		return nil, err
	}
	convs, err := s.conversations.ListByPage(ctx, pageID)
	if err != nil {
		return nil, &PersistenceError{Op: "list conversations", Err: err}
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

// GetConversation returns a conversation with its messages in timestamp order.
func (s *InboxService) GetConversation(ctx context.Context, operatorID string, conversationID uint) (*models.ConversationDetail, error) {
	conv, _, err := s.ownedConversation(ctx, operatorID, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "list messages", Err: err}
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return &models.ConversationDetail{Conversation: conv, Messages: msgs}, nil
}

// CustomerSummary returns the customer card of a conversation.
func (s *InboxService) CustomerSummary(ctx context.Context, operatorID string, conversationID uint) (models.CustomerSummary, error) {
	conv, _, err := s.ownedConversation(ctx, operatorID, conversationID)
	if err != nil {
		return models.CustomerSummary{}, err
	}
	return conv.Customer(), nil
}

// ownedConversation loads a conversation and its page. A conversation whose
// page is gone is reported as forbidden.
func (s *InboxService) ownedConversation(ctx context.Context, operatorID string, conversationID uint) (*models.Conversation, *models.Page, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, nil, &PersistenceError{Op: "find conversation", Err: err}
	}

	page, err := s.pages.Authorize(ctx, operatorID, conv.PageID)
	if errors.Is(err, ErrPageNotFound) {
		return nil, nil, ErrForbidden
	}
	if err != nil {
		return nil, nil, err
	}
	return conv, page, nil
}
