package models

import (
	"time"
)

// Sender roles
const (
	SenderCustomer = "customer"
	SenderOperator = "operator"
)

// Message is one stored message. Rows are never updated.
type Message struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ConversationID uint      `json:"conversationId" gorm:"not null;index"`
	MessageID      string    `json:"messageId" gorm:"uniqueIndex:idx_messages_message_id,where:message_id <> ''"`
	Sender         string    `json:"sender" gorm:"not null"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null;index"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SendMessageRequest is the body of an operator reply.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ConversationDetail is a conversation together with its messages.
type ConversationDetail struct {
	Conversation *Conversation `json:"conversation"`
	Messages     []Message     `json:"messages"`
}
