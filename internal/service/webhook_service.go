package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"helpdesk-inbox/backend/internal/graph"
	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/pkg/lock"
	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/shared/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is how a single messaging event ended.
type Outcome string

const (
	OutcomeProcessed     Outcome = "processed"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeEcho          Outcome = "skipped_echo"
	OutcomeNoMessage     Outcome = "skipped_no_message"
	OutcomeUnknownPage   Outcome = "skipped_unknown_page"
	OutcomeProfileFailed Outcome = "failed_profile"
	OutcomeFailed        Outcome = "failed"
)

// BatchResult tallies the outcomes of one webhook delivery, in event order.
type BatchResult struct {
	Outcomes []Outcome
}

// Count returns how many events ended with o.
func (r BatchResult) Count(o Outcome) int {
	n := 0
	for _, got := range r.Outcomes {
		if got == o {
			n++
		}
	}
	return n
}

// ProfileFetcher reads a customer profile with a page token.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken, customerID string) (*graph.Profile, error)
}

// WebhookDeps are the collaborators of a WebhookService.
type WebhookDeps struct {
	Pages         *PageDirectory
	Profiles      ProfileFetcher
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Locker        lock.Locker
	Notifier      Notifier
	Metrics       *observability.Metrics
	Logger        *logger.Logger
	// EventTimeout bounds each event. Defaults to 10s.
	EventTimeout time.Duration
}

// WebhookService turns webhook deliveries into conversations and messages.
type WebhookService struct {
	deps   WebhookDeps
	tracer trace.Tracer
}

func NewWebhookService(deps WebhookDeps) *WebhookService {
	if deps.EventTimeout <= 0 {
		deps.EventTimeout = 10 * time.Second
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetGlobal()
	}
	return &WebhookService{
		deps:   deps,
		tracer: otel.Tracer("helpdesk-inbox/webhook"),
	}
}

// ProcessBatch handles every messaging event of every entry in order. One
// event failing never stops the others. Each event runs on a context detached
// from ctx so a dropped request does not abort persistence half way.
func (s *WebhookService) ProcessBatch(ctx context.Context, batch *models.WebhookBatch) BatchResult {
	var result BatchResult
	base := context.WithoutCancel(ctx)

	for _, entry := range batch.Entry {
		for _, event := range entry.Messaging {
			outcome := s.processIsolated(base, entry.ID, event)
			s.deps.Metrics.WebhookEvents.Add(base, 1,
				metric.WithAttributes(attribute.String("outcome", string(outcome))))
			result.Outcomes = append(result.Outcomes, outcome)
		}
	}
	return result
}

func (s *WebhookService) processIsolated(base context.Context, pageID string, event models.MessagingEvent) (outcome Outcome) {
	ctx, cancel := context.WithTimeout(base, s.deps.EventTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error("Panic while processing webhook event",
				"page_id", pageID,
				"sender_id", event.Sender.ID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			outcome = OutcomeFailed
		}
	}()

	outcome, err := s.ProcessEvent(ctx, pageID, event)
	if err != nil {
		s.deps.Logger.LogError(err, "Failed to process webhook event",
			"page_id", pageID,
			"sender_id", event.Sender.ID,
			"outcome", string(outcome),
		)
	}
	return outcome
}

// ProcessEvent persists one messaging event and notifies the page operator.
// Skips return a nil error; failures return the outcome and the cause.
func (s *WebhookService) ProcessEvent(ctx context.Context, pageID string, event models.MessagingEvent) (Outcome, error) {
	if event.Message == nil {
		return OutcomeNoMessage, nil
	}
	if event.Message.IsEcho {
		return OutcomeEcho, nil
	}

	ctx, span := s.tracer.Start(ctx, "webhook.event", trace.WithAttributes(
		attribute.String("page.id", pageID),
		attribute.String("sender.id", event.Sender.ID),
		attribute.String("message.id", event.Message.MID),
	))
	defer span.End()

	outcome, err := s.persist(ctx, pageID, event)
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

func (s *WebhookService) persist(ctx context.Context, pageID string, event models.MessagingEvent) (Outcome, error) {
	log := s.deps.Logger.With("page_id", pageID, "sender_id", event.Sender.ID)
	senderID := event.Sender.ID
	at := event.Time()

	page, err := s.deps.Pages.Lookup(ctx, pageID)
	if errors.Is(err, ErrPageNotFound) {
		log.Warn("Page not found or not connected, skipping event")
		return OutcomeUnknownPage, nil
	}
	if err != nil {
		return OutcomeFailed, err
	}

	profile, err := s.deps.Profiles.FetchProfile(ctx, page.PageAccessToken, senderID)
	if err != nil {
		s.deps.Metrics.ProfileFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return OutcomeProfileFailed, err
	}
	s.deps.Metrics.ProfileFetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))

	conv, msg, created, err := s.store(ctx, pageID, senderID, at, profile, event.Message)
	if err != nil {
		return OutcomeFailed, err
	}
	if !created {
		log.Info("Duplicate message ignored", "message_id", event.Message.MID)
		return OutcomeDuplicate, nil
	}

	notifyPersisted(s.deps.Notifier, page.OperatorID, conv, msg)
	log.Info("Saved message", "conversation_id", conv.ID, "message_id", msg.MessageID)
	return OutcomeProcessed, nil
}

// store runs under the per-(page, customer) lock so concurrent first contacts
// converge on one conversation even when the store cannot enforce it.
func (s *WebhookService) store(ctx context.Context, pageID, senderID string, at time.Time, profile *graph.Profile, in *models.EventMessage) (*models.Conversation, *models.Message, bool, error) {
	unlock, err := s.deps.Locker.Lock(ctx, conversationKey(pageID, senderID))
	if err != nil {
		return nil, nil, false, err
	}
	defer unlock()

	conv, _, err := s.deps.Conversations.Upsert(ctx, &models.Conversation{
		PageID:          pageID,
		CustomerID:      senderID,
		CustomerName:    models.CustomerNameFor(profile.FirstName, profile.LastName),
		CustomerPicture: models.StringPtr(profile.PictureURL),
		FirstName:       models.StringPtr(profile.FirstName),
		LastName:        models.StringPtr(profile.LastName),
		Email:           models.StringPtr(profile.Email),
		LastMessageAt:   at,
		Status:          models.StatusOpen,
	})
	if err != nil {
		return nil, nil, false, &PersistenceError{Op: "upsert conversation", Err: err}
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		MessageID:      in.MID,
		Sender:         models.SenderCustomer,
		SenderID:       senderID,
		Content:        in.Text,
		Timestamp:      at,
	}
	created, err := s.deps.Messages.Create(ctx, msg)
	if err != nil {
		return nil, nil, false, &PersistenceError{Op: "create message", Err: err}
	}
	return conv, msg, created, nil
}

func conversationKey(pageID, customerID string) string {
	return "conversation:" + pageID + ":" + customerID
}
