package ws

import (
	"net/http"
	"time"

	"helpdesk-inbox/backend/pkg/logger"
	"helpdesk-inbox/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// AuthError rejects a websocket handshake before the upgrade.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// Handler authenticates and upgrades operator websocket connections.
type Handler struct {
	hub      *Hub
	tokens   middleware.TokenValidator
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, tokens middleware.TokenValidator, allowedOrigins []string, log *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(r.Header.Get("Origin"), allowedOrigins)
			},
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Authenticate reads the token from the "token" query parameter or the
// Authorization header and returns the operator id it was issued to.
func (h *Handler) Authenticate(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return "", &AuthError{Reason: "Authentication error: token missing"}
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		return "", &AuthError{Reason: "Authentication error: invalid token"}
	}
	return claims.OperatorID, nil
}

// ServeWs admits an authenticated operator into their delivery group.
func (h *Handler) ServeWs(c *gin.Context) {
	operatorID, err := h.Authenticate(c.Request)
	if err != nil {
		h.log.Warn("Rejected websocket connection", "reason", err.Error(), "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "operator_id", operatorID, "error", err.Error())
		return
	}

	client := &Client{
		ID:         uuid.NewString(),
		OperatorID: operatorID,
		Conn:       conn,
		Send:       make(chan []byte, sendBuffer),
		Hub:        h.hub,
	}
	h.hub.Join(client)

	go client.WritePump()
	go client.ReadPump()
}
