package service

import (
	"context"
	"sync"
	"time"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
)

// racyConversations reproduces a find-then-create store with no uniqueness
// guarantee. Without outside serialisation concurrent callers both create.
type racyConversations struct {
	mu    sync.Mutex
	rows  []*models.Conversation
	delay time.Duration
}

func newRacyConversations() *racyConversations {
	return &racyConversations{delay: 10 * time.Millisecond}
}

func (r *racyConversations) find(pageID, customerID string) *models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.PageID == pageID && c.CustomerID == customerID {
			return c
		}
	}
	return nil
}

func (r *racyConversations) Upsert(_ context.Context, conv *models.Conversation) (*models.Conversation, bool, error) {
	if existing := r.find(conv.PageID, conv.CustomerID); existing != nil {
		r.mu.Lock()
		existing.LastMessageAt = conv.LastMessageAt
		r.mu.Unlock()
		return existing, false, nil
	}

	time.Sleep(r.delay)

	r.mu.Lock()
	defer r.mu.Unlock()
	conv.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, conv)
	return conv, true, nil
}

func (r *racyConversations) FindByID(_ context.Context, id uint) (*models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *racyConversations) ListByPage(_ context.Context, pageID string) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Conversation
	for _, c := range r.rows {
		if c.PageID == pageID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *racyConversations) Touch(context.Context, uint, time.Time) error { return nil }

func (r *racyConversations) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}
