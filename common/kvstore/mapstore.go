package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
)

// MapStore is a persistent map of string keys to values of type T stored in badger. Values are
// stored as JSON so entries remain readable across versions that add fields.
type MapStore[T any] struct {
	db *badger.DB
}

// NewMapStore opens (or creates) the database described by opts. The returned function closes the
// database and must be called when the store is no longer needed.
func NewMapStore[T any](opts badger.Options) (*MapStore[T], func() error, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open database: %w", err)
	}
	return &MapStore[T]{db: db}, db.Close, nil
}

// DefaultOptions returns badger options tuned for the small amount of data stored by this tool.
// If path is empty an in-memory database is used.
func DefaultOptions(path string, log *zap.Logger) badger.Options {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithMemTableSize(8 << 20).WithBlockCacheSize(16 << 20).WithNumVersionsToKeep(1)
	if log != nil {
		opts = opts.WithLogger(&badgerLogger{log: log.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}
	return opts
}

func (s *MapStore[T]) Set(key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("unable to encode entry %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *MapStore[T]) Get(key string) (T, error) {
	var value T
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrEntryNotFound, key)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &value)
		})
	})
	return value, err
}

func (s *MapStore[T]) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Entry is a key and its decoded value.
type Entry[T any] struct {
	Key   string
	Value T
}

// List returns up to limit entries whose keys start with prefix. Entries are returned in reverse
// key order when reverse is set. A limit of zero returns all entries.
func (s *MapStore[T]) List(prefix string, limit int, reverse bool) ([]Entry[T], error) {
	entries := []Entry[T]{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(prefix)
		if reverse {
			seek = append(seek, 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			var value T
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			}); err != nil {
				return fmt.Errorf("unable to decode entry %s: %w", item.Key(), err)
			}
			entries = append(entries, Entry[T]{Key: string(item.KeyCopy(nil)), Value: value})
			if limit > 0 && len(entries) >= limit {
				return nil
			}
		}
		return nil
	})
	return entries, err
}

// badgerLogger adapts a zap logger to the badger.Logger interface.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(f string, v ...any)   { l.log.Errorf(f, v...) }
func (l *badgerLogger) Warningf(f string, v ...any) { l.log.Warnf(f, v...) }
func (l *badgerLogger) Infof(f string, v ...any)    { l.log.Debugf(f, v...) }
func (l *badgerLogger) Debugf(f string, v ...any)   { l.log.Debugf(f, v...) }
