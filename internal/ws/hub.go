// Package ws pushes inbox events to operators over websockets.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Message is the frame written to clients.
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Hub maps each operator id to the set of that operator's open connections.
// Groups exist only while they have members.
type Hub struct {
	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewHub(log *logger.Logger, metrics *observability.Metrics) *Hub {
	if metrics == nil {
		metrics = observability.NoopMetrics()
	}
	return &Hub{
		groups:  make(map[string]map[*Client]struct{}),
		log:     log,
		metrics: metrics,
	}
}

// Join admits c into its operator's group.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	group, ok := h.groups[c.OperatorID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[c.OperatorID] = group
	}
	group[c] = struct{}{}
	size := len(group)
	h.mu.Unlock()

	h.metrics.ActiveConnections.Add(context.Background(), 1)
	h.log.Info("Operator connected", "operator_id", c.OperatorID, "client_id", c.ID, "sessions", size)
}

// Leave removes c and closes its send channel. It is safe to call more than once.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()

	if removed {
		h.metrics.ActiveConnections.Add(context.Background(), -1)
		h.log.Info("Operator disconnected", "operator_id", c.OperatorID, "client_id", c.ID)
	}
}

// removeLocked must be called with mu held.
func (h *Hub) removeLocked(c *Client) bool {
	group, ok := h.groups[c.OperatorID]
	if !ok {
		return false
	}
	if _, ok := group[c]; !ok {
		return false
	}
	delete(group, c)
	close(c.Send)
	if len(group) == 0 {
		delete(h.groups, c.OperatorID)
	}
	return true
}

// Notify sends event to every session of operatorID. Sessions whose buffer
// is full are dropped. Nothing is queued when the operator is offline.
func (h *Hub) Notify(operatorID, event string, payload interface{}) {
	frame, err := json.Marshal(Message{Type: event, Content: payload})
	if err != nil {
		h.log.LogError(err, "Failed to marshal notification", "event", event)
		return
	}

	var slow []*Client
	h.mu.RLock()
	group := h.groups[operatorID]
	for c := range group {
		select {
		case c.Send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	delivered := len(group) - len(slow)
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("Dropping slow websocket client", "operator_id", operatorID, "client_id", c.ID)
		h.Leave(c)
	}

	h.metrics.Notifications.Add(context.Background(), int64(delivered),
		metric.WithAttributes(attribute.String("event", event)))
}

// GroupSize returns the number of open sessions for operatorID.
func (h *Hub) GroupSize(operatorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[operatorID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, group := range h.groups {
		for c := range group {
			h.removeLocked(c)
		}
	}
}
