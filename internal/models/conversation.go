package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Conversation statuses
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// UnknownCustomer is the display name used when the profile carries no name.
const UnknownCustomer = "Unknown"

// Conversation is the thread between one page and one customer.
type Conversation struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PageID          string    `json:"pageId" gorm:"not null;uniqueIndex:idx_conversations_page_customer"`
	CustomerID      string    `json:"customerId" gorm:"not null;uniqueIndex:idx_conversations_page_customer"`
	CustomerName    string    `json:"customerName" gorm:"not null;default:Unknown"`
	CustomerPicture *string   `json:"customerPicture"`
	FirstName       *string   `json:"firstName"`
	LastName        *string   `json:"lastName"`
	Email           *string   `json:"email"`
	LastMessageAt   time.Time `json:"lastMessageTimestamp" gorm:"not null;index:idx_conversations_last_message,sort:desc"`
	Status          string    `json:"status" gorm:"not null;default:open"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// MarshalJSON adds the derived fullName field.
func (c Conversation) MarshalJSON() ([]byte, error) {
	type plain Conversation
	return json.Marshal(struct {
		plain
		FullName string `json:"fullName"`
	}{plain: plain(c), FullName: c.DisplayName()})
}

// DisplayName joins first and last name, falling back to the customer name.
func (c *Conversation) DisplayName() string {
	full := strings.TrimSpace(deref(c.FirstName) + " " + deref(c.LastName))
	if full != "" {
		return full
	}
	if c.CustomerName != "" {
		return c.CustomerName
	}
	return UnknownCustomer
}

// CustomerSummary is the customer card shown next to a conversation.
type CustomerSummary struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Name      *string `json:"name"`
	Picture   *string `json:"picture"`
}

// Customer builds the summary card for c.
func (c *Conversation) Customer() CustomerSummary {
	return CustomerSummary{
		Email:     nonEmpty(c.Email),
		FirstName: nonEmpty(c.FirstName),
		LastName:  nonEmpty(c.LastName),
		Name:      nonEmpty(&c.CustomerName),
		Picture:   nonEmpty(c.CustomerPicture),
	}
}

// CustomerNameFor renders the stored display name from profile names.
func CustomerNameFor(firstName, lastName string) string {
	if name := strings.TrimSpace(firstName + " " + lastName); name != "" {
		return name
	}
	return UnknownCustomer
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
