package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"farmlink/internal/middleware"
	"farmlink/internal/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Connect upgrades the request to a websocket, registers the channel in the
// presence registry and keeps it alive with a ping/pong heartbeat. A client
// that stops answering pings is unregistered when its read deadline lapses.
func Connect(registry *realtime.Registry, jwtSecret string, heartbeat time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			parts := strings.Split(strings.TrimSpace(c.GetHeader("Authorization")), " ")
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}

		userID, _, err := middleware.ParseToken(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("[WS] [ERROR] upgrade failed:", err)
			return
		}

		ch := realtime.NewWSChannel(conn)
		registry.Register(userID.Hex(), ch)
		log.Println("[WS] [INFO] channel opened for user:", userID.Hex())

		defer func() {
			registry.Unregister(ch)
			_ = ch.Close()
			log.Println("[WS] [INFO] channel closed for user:", userID.Hex())
		}()

		_ = ch.Send(realtime.NewEnvelope(realtime.EventAuthSuccess, gin.H{"userId": userID.Hex()}))

		_ = conn.SetReadDeadline(time.Now().Add(heartbeat))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(heartbeat))
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				// Clients do not send application data; the read loop only
				// services pongs and notices the close.
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(heartbeat / 2)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ch.Ping(); err != nil {
					return
				}
			}
		}
	}
}
