// Command main tails a running wall over its websocket and prints the feed
// whenever it changes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wall/internal/observability"
	"wall/internal/server"

	"github.com/gorilla/websocket"
)

func main() {
	if err := run(); err != nil {
		observability.GlobalLogger.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "127.0.0.1:8375", "the wall server address")
	limit := flag.Int("n", 10, "number of posts to print per update")
	retry := flag.Duration("retry", 2*time.Second, "delay between reconnect attempts")
	flag.Parse()

	observability.InitLogger("development", slog.LevelInfo)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t := time.NewTicker(*retry)
	defer t.Stop()
	for {
		err := tail(ctx, u.String(), *limit)
		if ctx.Err() != nil {
			return nil
		}
		observability.GlobalLogger.Warn("connection lost", slog.String("error", errString(err)))

		select {
		case <-t.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func tail(ctx context.Context, target string, limit int) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	observability.GlobalLogger.Info("connected", slog.String("url", target))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("server closed the connection")
			}
			return err
		}

		var msg server.FeedMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			observability.GlobalLogger.Warn("undecodable message", slog.String("error", err.Error()))
			continue
		}
		printFeed(msg, limit)
	}
}

func printFeed(msg server.FeedMessage, limit int) {
	fmt.Printf("\n== %s (%d posts) ==\n", msg.Type, len(msg.Posts))
	for i, p := range msg.Posts {
		if i == limit {
			fmt.Printf("... %d more\n", len(msg.Posts)-limit)
			break
		}
		author := "anonymous"
		if p.Author != nil {
			author = *p.Author
		}
		fmt.Printf("[%s] %s: %s\n", p.Posted, author, p.Body)
		if p.ImageURL != nil {
			fmt.Printf("    %s\n", *p.ImageURL)
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "closed"
	}
	return err.Error()
}
