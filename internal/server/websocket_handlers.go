package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"wall/internal/models"
	"wall/internal/notifications"
	"wall/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Websocket message types.
const (
	msgFeedSnapshot = "feed_snapshot"
	msgFeedUpdated  = "feed_updated"
)

// FeedMessage is sent to websocket clients with the wall's full view.
type FeedMessage struct {
	Type  string     `json:"type"`
	Posts []PostView `json:"posts"`
}

func (s *Server) feedMessage(kind string, posts []models.Post) ([]byte, error) {
	return json.Marshal(FeedMessage{Type: kind, Posts: s.postViews(posts)})
}

func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// FeedWebSocketHandler streams the wall to a websocket client: a snapshot on
// connect, then the full view after every change.
func (s *Server) FeedWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		logger := s.hub.Logger()

		client, err := s.hub.Register(conn)
		if err != nil {
			if errors.Is(err, notifications.ErrConnectionLimit) {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			}
			observability.GlobalLogger.Warn("websocket register failed", slog.String("error", err.Error()))
			_ = conn.Close()
			return
		}

		snapshot, err := s.feedMessage(msgFeedSnapshot, s.wall.Store().Posts())
		if err != nil {
			logger.LogError(context.Background(), client.ID, err, "snapshot")
			s.hub.UnregisterClient(client)
			_ = conn.Close()
			return
		}
		client.TrySend(snapshot)

		go client.WritePump()
		client.ReadPump(logger)
	})
}
