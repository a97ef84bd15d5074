package service

import (
	"context"
	"errors"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/pkg/cache"
	"helpdesk-inbox/backend/pkg/logger"
)

// PageDirectory resolves page ids to their credentials and owning operator.
// Hits are cached; misses are not, so a newly connected page is seen on the next event.
type PageDirectory struct {
	repo  repository.PageRepository
	cache *cache.Cache
	log   *logger.Logger
}

func NewPageDirectory(repo repository.PageRepository, c *cache.Cache, log *logger.Logger) *PageDirectory {
	return &PageDirectory{repo: repo, cache: c, log: log}
}

// Lookup returns the page or ErrPageNotFound.
func (d *PageDirectory) Lookup(ctx context.Context, pageID string) (*models.Page, error) {
	if d.cache != nil {
		if v, ok := d.cache.Get(pageID); ok {
			return v.(*models.Page), nil
		}
	}

	page, err := d.repo.FindByPageID(ctx, pageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find page", Err: err}
	}

	if d.cache != nil {
		d.cache.Set(pageID, page)
	}
	return page, nil
}

// Invalidate drops a cached page, e.g. after its token was rotated.
func (d *PageDirectory) Invalidate(pageID string) {
	if d.cache != nil {
		d.cache.Delete(pageID)
	}
}

// Authorize returns the page when operatorID owns it.
func (d *PageDirectory) Authorize(ctx context.Context, operatorID, pageID string) (*models.Page, error) {
	page, err := d.Lookup(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.OperatorID != operatorID {
		return nil, ErrForbidden
	}
	return page, nil
}
