package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/service"
	"helpdesk-inbox/backend/pkg/errors"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	batches []*models.WebhookBatch
	result  service.BatchResult
}

func (p *fakeProcessor) ProcessBatch(_ context.Context, batch *models.WebhookBatch) service.BatchResult {
	p.batches = append(p.batches, batch)
	return p.result
}

func newWebhookRouter(p BatchProcessor, cfg WebhookConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(errors.ErrorHandler())
	NewWebhookHandler(p, cfg, logger.Discard()).RegisterRoutes(r)
	return r
}

func TestVerify(t *testing.T) {
	r := newWebhookRouter(&fakeProcessor{}, WebhookConfig{VerifyToken: "s3cret"})

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"matching token", "hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=s3cret&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fb/webhook?"+tt.query, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestVerifyWithoutConfiguredTokenAlwaysFails(t *testing.T) {
	r := newWebhookRouter(&fakeProcessor{}, WebhookConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fb/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

const pageBatch = `{"object":"page","entry":[{"id":"page-1","messaging":[{"sender":{"id":"psid-1"},"timestamp":1700000000123,"message":{"mid":"m.1","text":"hi"}}]}]}`

func postWebhook(r http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/fb/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveAcknowledgesPageBatches(t *testing.T) {
	p := &fakeProcessor{result: service.BatchResult{Outcomes: []service.Outcome{service.OutcomeProfileFailed}}}
	r := newWebhookRouter(p, WebhookConfig{})

	w := postWebhook(r, pageBatch, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVENT_RECEIVED", w.Body.String())
	require.Len(t, p.batches, 1)
	event := p.batches[0].Entry[0].Messaging[0]
	assert.Equal(t, "psid-1", event.Sender.ID)
	assert.Equal(t, "m.1", event.Message.MID)
	assert.Equal(t, int64(1700000000123), event.Timestamp)
}

func TestReceiveRejectsOtherObjectsAndBadJSON(t *testing.T) {
	p := &fakeProcessor{}
	r := newWebhookRouter(p, WebhookConfig{})

	w := postWebhook(r, `{"object":"instagram","entry":[]}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postWebhook(r, `{"object":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, p.batches)
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestReceiveChecksSignatureWhenSecretSet(t *testing.T) {
	p := &fakeProcessor{}
	r := newWebhookRouter(p, WebhookConfig{AppSecret: "app-secret"})

	w := postWebhook(r, pageBatch, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postWebhook(r, pageBatch, map[string]string{signatureHeader: sign(pageBatch, "other")})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postWebhook(r, pageBatch, map[string]string{signatureHeader: sign(pageBatch, "app-secret")})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, p.batches, 1)
}

func TestReceiveRejectsOversizedBody(t *testing.T) {
	p := &fakeProcessor{}
	r := newWebhookRouter(p, WebhookConfig{MaxBodySize: 16})

	w := postWebhook(r, pageBatch, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, p.batches)
}
