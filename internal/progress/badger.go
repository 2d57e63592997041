package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "progress/"

type BadgerConfig struct {
	Path              string
	InMemory          bool
	SyncWrites        bool
	NumVersionsToKeep int
}

func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:        true,
		NumVersionsToKeep: 1,
	}
}

// InMemoryBadgerConfig is meant for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// badgerLogger routes badger's internal logs through clog.
type badgerLogger struct {
	logger *clog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(ctx context.Context, cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent progress store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create progress directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	opts = opts.WithLogger(&badgerLogger{logger: clog.FromContext(ctx).With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func badgerKey(fingerprint string) []byte {
	return []byte(badgerKeyPrefix + fingerprint)
}

func (s *BadgerStore) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	var entry *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entry = &Entry{}
			return json.Unmarshal(val, entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress %s: %w", fingerprint, err)
	}
	return entry, true, nil
}

func (s *BadgerStore) PutIfAbsent(ctx context.Context, e *Entry) (bool, error) {
	if err := validateEntry(e); err != nil {
		return false, err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshal: %w", err)
	}

	written := false
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(e.Fingerprint))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		written = true
		return txn.Set(badgerKey(e.Fingerprint), data)
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent transaction wrote the same key first.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("put progress %s: %w", e.Fingerprint, err)
	}
	return written, nil
}

func (s *BadgerStore) List(ctx context.Context) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var e Entry
				if err := json.Unmarshal(val, &e); err != nil {
					return fmt.Errorf("unmarshal %s: %w", it.Item().Key(), err)
				}
				entries = append(entries, &e)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return entries, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
