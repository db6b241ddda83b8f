package main

import (
	"context"
	"fmt"
	"housing-chat/internal"
	"housing-chat/repositories"
	"housing-chat/storage"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// Read-only so the viewer can run next to a writer holding the lock
	db, err := storage.OpenReadOnly(config.BadgerFilepath, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	started := time.Now()
	stats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Uptime": time.Since(started).Round(time.Second).String(),
		}
	}

	server, errChan, err := internal.StartDebugServer(db, config.DebugPort, "/inspect", MessageMapper, stats)
	if err != nil {
		return err
	}
	log.Info("Viewer started", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// MessageMapper decodes message values, other index entries keep the raw view.
func MessageMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	if !strings.HasPrefix(key, "dm:msg:") {
		return row
	}
	message, err := repositories.DecodeMessage(val)
	if err != nil {
		return row
	}
	row.Type = "MESSAGE"
	row.Timestamp = message.CreatedAt.Format(time.DateTime)
	row.Detail = fmt.Sprintf("%s → %s: %s", message.SenderID, message.ReceiverID, message.Body)
	row.Flags = "unread"
	if message.IsRead {
		row.Flags = "read"
	}
	return row
}
