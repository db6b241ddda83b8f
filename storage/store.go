// Package storage opens the message store selected by configuration and
// owns its lifecycle: open at process start, close at shutdown.
package storage

import (
	"fmt"
	"housing-chat/errors"
	"housing-chat/internal"
	"housing-chat/repositories"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type Store struct {
	Messages repositories.IMessageRepository
	log      *slog.Logger
	closers  []func() error
}

func Open(config internal.Config, log *slog.Logger) (*Store, error) {
	switch config.StoreBackend {
	case internal.BackendMemory:
		log.Warn("Using in-memory message store, nothing will survive a restart")
		return &Store{Messages: repositories.NewInMemoryMessageRepository(log, nil), log: log}, nil
	case internal.BackendBadger:
		return openBadger(config.BadgerFilepath, log)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownStoreBackend, config.StoreBackend)
	}
}

// OpenReadOnly opens the badger files without taking the writer lock, for
// inspection tools running next to the main process.
func OpenReadOnly(path string, log *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	log.Info("BadgerDB opened read-only", "path", path)
	return db, nil
}

func openBadger(path string, log *slog.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.INFO))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	repository, err := repositories.NewMessageRepository(db, log, nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("BadgerDB opened", "path", path)
	return &Store{
		Messages: repository,
		log:      log,
		// the sequence must be released before the database closes
		closers: []func() error{repository.Close, db.Close},
	}, nil
}

// Close releases every resource in order and reports the first failure.
func (s *Store) Close() error {
	var first error
	for _, closer := range s.closers {
		if err := closer(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	s.log.Info("Message store closed")
	return first
}
