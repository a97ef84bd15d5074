package service

import (
	"context"
	"strings"
	"time"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/pkg/logger"
)

// MessageSender delivers a text message from a page to a customer.
type MessageSender interface {
	SendText(ctx context.Context, accessToken, recipientID, text string) (string, error)
}

// ReplyService sends operator replies and records them in the conversation.
type ReplyService struct {
	inbox    *InboxService
	sender   MessageSender
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewReplyService(inbox *InboxService, sender MessageSender, convs repository.ConversationRepository, messages repository.MessageRepository, notifier Notifier, log *logger.Logger) *ReplyService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ReplyService{
		inbox:    inbox,
		sender:   sender,
		convs:    convs,
		messages: messages,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Reply sends text to the conversation's customer as the page, stores it as
// an operator message and notifies the operator's other sessions.
func (s *ReplyService) Reply(ctx context.Context, operatorID string, conversationID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv, page, err := s.inbox.ownedConversation(ctx, operatorID, conversationID)
	if err != nil {
		return nil, err
	}

	mid, err := s.sender.SendText(ctx, page.PageAccessToken, conv.CustomerID, text)
	if err != nil {
		return nil, &SendError{Err: err}
	}

	at := s.now().UTC()
	msg := &models.Message{
		ConversationID: conv.ID,
		MessageID:      mid,
		Sender:         models.SenderOperator,
		SenderID:       page.PageID,
		Content:        text,
		Timestamp:      at,
	}
	if _, err := s.messages.Create(ctx, msg); err != nil {
		return nil, &PersistenceError{Op: "create message", Err: err}
	}
	if err := s.convs.Touch(ctx, conv.ID, at); err != nil {
		s.log.LogError(err, "Failed to bump conversation timestamp", "conversation_id", conv.ID)
	} else {
		conv.LastMessageAt = at
	}

	notifyPersisted(s.notifier, page.OperatorID, conv, msg)
	return msg, nil
}
