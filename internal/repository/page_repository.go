package repository

import (
	"context"

	"helpdesk-inbox/backend/internal/models"

	"gorm.io/gorm"
)

type PageRepository interface {
	FindByPageID(ctx context.Context, pageID string) (*models.Page, error)
	Create(ctx context.Context, page *models.Page) error
}

type GormPageRepository struct {
	db *gorm.DB
}

func NewGormPageRepository(db *gorm.DB) *GormPageRepository {
	return &GormPageRepository{db: db}
}

func (r *GormPageRepository) FindByPageID(ctx context.Context, pageID string) (*models.Page, error) {
	var page models.Page
	if err := r.db.WithContext(ctx).Where("page_id = ?", pageID).First(&page).Error; err != nil {
		return nil, translate(err)
	}
	return &page, nil
}

func (r *GormPageRepository) Create(ctx context.Context, page *models.Page) error {
	return r.db.WithContext(ctx).Create(page).Error
}
