package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helpdesk-inbox/backend/pkg/jwt"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	hub    *Hub
	tokens *jwt.Service
	url    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewService("ws-secret", time.Hour)
	require.NoError(t, err)
	hub := NewHub(logger.Discard(), nil)
	handler := NewHandler(hub, tokens, []string{"*"}, logger.Discard())

	r := gin.New()
	r.GET("/ws", handler.ServeWs)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return &testServer{
		hub:    hub,
		tokens: tokens,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (s *testServer) dial(t *testing.T, operatorID string) *websocket.Conn {
	t.Helper()
	token, err := s.tokens.GenerateToken(operatorID, "")
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(s.url+"?token="+token, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestRejectsMissingOrInvalidToken(t *testing.T) {
	s := newTestServer(t)

	for _, url := range []string{s.url, s.url + "?token=garbage"} {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		assert.Nil(t, conn)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Contains(t, body["error"], "Authentication error")
	}

	assert.Zero(t, s.hub.GroupSize(""))
}

func TestAcceptsBearerHeader(t *testing.T) {
	s := newTestServer(t)
	token, err := s.tokens.GenerateToken("op-9", "")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.Dial(s.url, header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.GroupSize("op-9") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyReachesOnlyTheOperatorsSessions(t *testing.T) {
	s := newTestServer(t)
	laptop := s.dial(t, "op-1")
	phone := s.dial(t, "op-1")
	other := s.dial(t, "op-2")

	require.Eventually(t, func() bool {
		return s.hub.GroupSize("op-1") == 2 && s.hub.GroupSize("op-2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.hub.Notify("op-1", "new_message", map[string]string{"content": "hello"})

	for _, conn := range []*websocket.Conn{laptop, phone} {
		msg := readFrame(t, conn)
		assert.Equal(t, "new_message", msg.Type)
		assert.Equal(t, map[string]interface{}{"content": "hello"}, msg.Content)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "op-2 receives nothing")
}

func TestDisconnectLeavesGroup(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "op-1")
	require.Eventually(t, func() bool { return s.hub.GroupSize("op-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return s.hub.GroupSize("op-1") == 0 }, 2*time.Second, 10*time.Millisecond)
	s.hub.mu.RLock()
	_, exists := s.hub.groups["op-1"]
	s.hub.mu.RUnlock()
	assert.False(t, exists, "empty groups are removed")
}

func TestNotifyDropsSlowClient(t *testing.T) {
	hub := NewHub(logger.Discard(), nil)
	c := &Client{ID: "c1", OperatorID: "op-1", Send: make(chan []byte, 1), Hub: hub}
	hub.Join(c)

	hub.Notify("op-1", "conversation_updated", 1)
	hub.Notify("op-1", "conversation_updated", 2)

	assert.Zero(t, hub.GroupSize("op-1"))
	frame, ok := <-c.Send
	assert.True(t, ok)
	assert.JSONEq(t, `{"type":"conversation_updated","content":1}`, string(frame))
	_, ok = <-c.Send
	assert.False(t, ok, "send channel is closed")

	hub.Leave(c)
	hub.Notify("nobody", "new_message", nil)
}
