package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"helpdesk-inbox/backend/internal/graph"
	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/pkg/cache"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type notification struct {
	OperatorID string
	Event      string
	Payload    interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(operatorID, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{OperatorID: operatorID, Event: event, Payload: payload})
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Event)
	}
	return out
}

// fakeProfiles returns a canned profile per customer id, or an error.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*graph.Profile
	errs     map[string]error
	calls    int
}

func (f *fakeProfiles) FetchProfile(_ context.Context, _, customerID string) (*graph.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[customerID]; ok {
		return nil, err
	}
	if p, ok := f.profiles[customerID]; ok {
		cp := *p
		return &cp, nil
	}
	return &graph.Profile{}, nil
}

type fixture struct {
	db            *gorm.DB
	pages         *PageDirectory
	conversations *repository.GormConversationRepository
	messages      *repository.GormMessageRepository
	profiles      *fakeProfiles
	notifier      *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	pageRepo := repository.NewGormPageRepository(db)
	require.NoError(t, pageRepo.Create(context.Background(), &models.Page{
		PageID:          "page-1",
		PageName:        "Support",
		PageAccessToken: "page-token",
		OperatorID:      "op-1",
	}))

	c, err := cache.New(16, time.Minute)
	require.NoError(t, err)

	return &fixture{
		db:            db,
		pages:         NewPageDirectory(pageRepo, c, logger.Discard()),
		conversations: repository.NewGormConversationRepository(db),
		messages:      repository.NewGormMessageRepository(db),
		profiles: &fakeProfiles{
			profiles: map[string]*graph.Profile{},
			errs:     map[string]error{},
		},
		notifier: &recordingNotifier{},
	}
}

func (f *fixture) webhookService(timeout time.Duration) *WebhookService {
	return NewWebhookService(WebhookDeps{
		Pages:         f.pages,
		Profiles:      f.profiles,
		Conversations: f.conversations,
		Messages:      f.messages,
		Notifier:      f.notifier,
		Logger:        logger.Discard(),
		EventTimeout:  timeout,
	})
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func messageEvent(senderID, mid, text string, ts int64) models.MessagingEvent {
	return models.MessagingEvent{
		Sender:    models.Participant{ID: senderID},
		Timestamp: ts,
		Message:   &models.EventMessage{MID: mid, Text: text},
	}
}

func batchOf(pageID string, events ...models.MessagingEvent) *models.WebhookBatch {
	return &models.WebhookBatch{
		Object: models.ObjectPage,
		Entry:  []models.WebhookEntry{{ID: pageID, Messaging: events}},
	}
}
