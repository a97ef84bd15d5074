package repository

import (
	"context"
	"time"

	"helpdesk-inbox/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository interface {
	// Upsert inserts conv unless a row for (PageID, CustomerID) exists. An
	// existing row gets LastMessageAt advanced and its null profile fields
	// filled from conv. The stored row is returned with created reporting
	// whether it was inserted.
	Upsert(ctx context.Context, conv *models.Conversation) (stored *models.Conversation, created bool, err error)
	FindByID(ctx context.Context, id uint) (*models.Conversation, error)
	ListByPage(ctx context.Context, pageID string) ([]models.Conversation, error)
	Touch(ctx context.Context, id uint, at time.Time) error
}

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Upsert(ctx context.Context, conv *models.Conversation) (*models.Conversation, bool, error) {
	db := r.db.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_id"}, {Name: "customer_id"}},
		DoNothing: true,
	}).Create(conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return conv, true, nil
	}

	err := db.Model(&models.Conversation{}).
		Where("page_id = ? AND customer_id = ?", conv.PageID, conv.CustomerID).
		Updates(map[string]interface{}{
			"last_message_at":  conv.LastMessageAt,
			"first_name":       gorm.Expr("COALESCE(first_name, ?)", conv.FirstName),
			"last_name":        gorm.Expr("COALESCE(last_name, ?)", conv.LastName),
			"customer_picture": gorm.Expr("COALESCE(customer_picture, ?)", conv.CustomerPicture),
			"email":            gorm.Expr("COALESCE(email, ?)", conv.Email),
		}).Error
	if err != nil {
		return nil, false, err
	}

	var stored models.Conversation
	if err := db.Where("page_id = ? AND customer_id = ?", conv.PageID, conv.CustomerID).First(&stored).Error; err != nil {
		return nil, false, translate(err)
	}
	return &stored, false, nil
}

func (r *GormConversationRepository) FindByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) ListByPage(ctx context.Context, pageID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

// Touch moves LastMessageAt forward to at. Older timestamps are ignored.
func (r *GormConversationRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ? AND last_message_at < ?", id, at).
		Update("last_message_at", at)
	return res.Error
}
