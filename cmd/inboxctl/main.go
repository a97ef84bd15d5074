package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"helpdesk-inbox/backend/internal/models"
	"helpdesk-inbox/backend/internal/repository"
	"helpdesk-inbox/backend/internal/ws"
	"helpdesk-inbox/backend/pkg/config"
	"helpdesk-inbox/backend/pkg/jwt"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gorilla/websocket"
)

func main() {
	registerPtr := flag.Bool("register-page", false, "Register a page and its operator")
	tokenPtr := flag.Bool("token", false, "Mint an operator token signed with JWT_SECRET")
	listenPtr := flag.Bool("listen", false, "Print realtime events for an operator")
	helpPtr := flag.Bool("help", false, "Show usage information")

	pageID := flag.String("page-id", "", "Page id")
	pageName := flag.String("page-name", "", "Page display name")
	pageToken := flag.String("page-token", "", "Page access token")
	operator := flag.String("operator", "", "Operator id")
	wsURL := flag.String("url", "ws://localhost:5000/ws", "Realtime endpoint")

	flag.Parse()

	if *helpPtr || (!*registerPtr && !*tokenPtr && !*listenPtr) {
		fmt.Println("Inbox Tools Usage:")
		fmt.Println("  -register-page -page-id ID -page-name NAME -page-token TOKEN -operator OP")
		fmt.Println("  -token -operator OP")
		fmt.Println("  -listen -operator OP [-url ws://host/ws]")
		fmt.Println("  -help         Show this help message")
		os.Exit(0)
	}

	cfg := config.New()

	switch {
	case *registerPtr:
		registerPage(cfg, models.Page{
			PageID:          *pageID,
			PageName:        *pageName,
			PageAccessToken: *pageToken,
			OperatorID:      *operator,
		})
	case *tokenPtr:
		fmt.Println(mintToken(cfg, *operator))
	case *listenPtr:
		listen(*wsURL, mintToken(cfg, *operator))
	}
}

func registerPage(cfg *config.Config, page models.Page) {
	if page.PageID == "" || page.PageAccessToken == "" {
		log.Fatal("-page-id and -page-token are required")
	}

	db, err := config.NewDB(cfg, logger.GetGlobal())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repository.NewGormPageRepository(db).Create(ctx, &page); err != nil {
		log.Fatalf("Failed to register page: %v", err)
	}
	log.Printf("Registered page %s for operator %q", page.PageID, page.OperatorID)
}

func mintToken(cfg *config.Config, operatorID string) string {
	if operatorID == "" {
		log.Fatal("-operator is required")
	}
	svc, err := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		log.Fatalf("Failed to create jwt service: %v", err)
	}
	token, err := svc.GenerateToken(operatorID, "")
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func listen(endpoint, token string) {
	u, err := url.Parse(endpoint)
	if err != nil {
		log.Fatalf("Invalid url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	log.Println("Connecting to WebSocket...")
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Error connecting to WebSocket: %v", err)
	}
	defer conn.Close()
	log.Println("Connected to WebSocket")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				log.Printf("WebSocket read error: %v", err)
				return
			}

			var msg ws.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Printf("Error unmarshaling message: %v", err)
				continue
			}
			content, _ := json.MarshalIndent(msg.Content, "", "  ")
			log.Printf("%s\n%s", msg.Type, content)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during closing websocket: %v", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
