package models

import "time"

// ObjectPage is the only webhook object type this service handles.
const ObjectPage = "page"

// WebhookBatch is the body of a webhook delivery.
type WebhookBatch struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the events of one page.
type WebhookEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time,omitempty"`
	Messaging []MessagingEvent `json:"messaging"`
}

// MessagingEvent is one messaging callback. Message is nil for receipts.
type MessagingEvent struct {
	Sender    Participant   `json:"sender"`
	Recipient Participant   `json:"recipient"`
	Timestamp int64         `json:"timestamp"`
	Message   *EventMessage `json:"message,omitempty"`
}

// Participant identifies a sender or recipient.
type Participant struct {
	ID string `json:"id"`
}

// EventMessage is the message payload of a messaging event.
type EventMessage struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

// Time converts the epoch-millisecond event timestamp. Zero falls back to now.
func (e MessagingEvent) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(e.Timestamp).UTC()
}
