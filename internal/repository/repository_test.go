package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"helpdesk-inbox/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func newConversation(at time.Time) *models.Conversation {
	return &models.Conversation{
		PageID:        "page-1",
		CustomerID:    "psid-1",
		CustomerName:  "Ada Lovelace",
		FirstName:     models.StringPtr("Ada"),
		LastMessageAt: at,
		Status:        models.StatusOpen,
	}
}

func TestPageRepository(t *testing.T) {
	repo := NewGormPageRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Page{PageID: "page-1", PageAccessToken: "tok", OperatorID: "op-1"}))

	page, err := repo.FindByPageID(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", page.PageAccessToken)
	assert.Equal(t, "op-1", page.OperatorID)

	_, err = repo.FindByPageID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConversationUpsertCreatesThenBackfills(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormConversationRepository(db)
	ctx := context.Background()
	first := time.UnixMilli(1700000000000).UTC()

	stored, created, err := repo.Upsert(ctx, newConversation(first))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, stored.ID)
	assert.Nil(t, stored.Email)

	later := first.Add(time.Minute)
	update := newConversation(later)
	update.FirstName = models.StringPtr("Augusta")
	update.LastName = models.StringPtr("Lovelace")
	update.Email = models.StringPtr("ada@example.com")

	again, created, err := repo.Upsert(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, "Ada", *again.FirstName, "set fields are never overwritten")
	assert.Equal(t, "Lovelace", *again.LastName)
	assert.Equal(t, "ada@example.com", *again.Email)
	assert.True(t, again.LastMessageAt.Equal(later))

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConversationUpsertConcurrentFirstContact(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormConversationRepository(db)
	at := time.Now().UTC()

	var wg sync.WaitGroup
	createdCount := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.Upsert(context.Background(), newConversation(at))
			assert.NoError(t, err)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	creates := 0
	for c := range createdCount {
		if c {
			creates++
		}
	}
	assert.Equal(t, 1, creates)

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConversationListAndTouch(t *testing.T) {
	repo := NewGormConversationRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	older := newConversation(base)
	older.CustomerID = "psid-old"
	newer := newConversation(base.Add(time.Hour))
	newer.CustomerID = "psid-new"
	other := newConversation(base)
	other.PageID = "page-2"

	for _, c := range []*models.Conversation{older, newer, other} {
		_, _, err := repo.Upsert(ctx, c)
		require.NoError(t, err)
	}

	list, err := repo.ListByPage(ctx, "page-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "psid-new", list[0].CustomerID)

	require.NoError(t, repo.Touch(ctx, older.ID, base.Add(2*time.Hour)))
	list, err = repo.ListByPage(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "psid-old", list[0].CustomerID)

	require.NoError(t, repo.Touch(ctx, older.ID, base))
	got, err := repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.True(t, got.LastMessageAt.Equal(base.Add(2*time.Hour)))

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageCreateIsIdempotentOnMessageID(t *testing.T) {
	repo := NewGormMessageRepository(newTestDB(t))
	ctx := context.Background()
	at := time.Now().UTC()

	created, err := repo.Create(ctx, &models.Message{ConversationID: 1, MessageID: "m.1", Sender: models.SenderCustomer, Content: "hi", Timestamp: at})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, &models.Message{ConversationID: 1, MessageID: "m.1", Sender: models.SenderCustomer, Content: "hi", Timestamp: at})
	require.NoError(t, err)
	assert.False(t, created)

	for i := 0; i < 2; i++ {
		created, err = repo.Create(ctx, &models.Message{ConversationID: 1, Sender: models.SenderOperator, Content: "reply", Timestamp: at.Add(time.Second)})
		require.NoError(t, err)
		assert.True(t, created, "empty message ids are not deduplicated")
	}

	msgs, err := repo.ListByConversation(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m.1", msgs[0].MessageID)
}
