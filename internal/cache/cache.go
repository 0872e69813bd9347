package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ogero/stremio-addon-sdk/internal/common"
)

var (
	// ErrNotInitialized is returned by Memoize before Init.
	ErrNotInitialized = errors.New("cache is not initialized")

	badgerDB *badger.DB
)

// Init opens the cache DB at path. An empty path keeps the cache in memory.
func Init(path string) error {
	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(0).
		WithValueLogFileSize(1024 * 1024 * 100).
		WithLogger(&l{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to badger.Open: %w", err)
	}
	badgerDB = db
	return nil
}

// Memoize retrieves a cached value for the specified cacheKey.
// If the value is present, it is returned. Otherwise fn is called to compute
// the value, which is then stored in the cache with the specified expiration
// and returned. Errors of fn are returned as is and nothing is stored.
// Hits and misses are counted per key prefix, the part of cacheKey before " : ".
func Memoize[V any](ctx context.Context, cacheKey string, ttl time.Duration, fn func(ctx context.Context) (*V, error)) (*V, error) {
	if badgerDB == nil {
		return nil, ErrNotInitialized
	}

	keyPrefix, _, _ := strings.Cut(cacheKey, " : ")
	value := new(V)

	err := badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}

		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, value)
		})
		if err != nil {
			return fmt.Errorf("failed to json.Unmarshal: %w", err)
		}

		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	} else if err == nil {
		common.CacheGetsTotalIncr(ctx, keyPrefix, "hit")
		return value, nil
	}
	common.CacheGetsTotalIncr(ctx, keyPrefix, "miss")

	value, err = fn(ctx)
	if err != nil {
		return nil, err
	}

	err = badgerDB.Update(func(txn *badger.Txn) error {
		valueJSONBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to json.Marshal: %w", err)
		}
		entry := badger.NewEntry([]byte(cacheKey), valueJSONBytes).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store on cache: %w", err)
	}

	return value, nil
}

// Close closes the cache DB. It's crucial to call it to ensure all the pending updates make their way to disk.
func Close() error {
	if badgerDB == nil {
		return nil
	}
	db := badgerDB
	badgerDB = nil
	return db.Close()
}

// l routes badger logs to the app logger.
type l struct{}

func (l *l) Errorf(s string, i ...interface{}) {
	common.Log.Error(strings.TrimSpace(fmt.Sprintf(s, i...)), "component", "badger")
}

func (l *l) Warningf(s string, i ...interface{}) {
	common.Log.Warn(strings.TrimSpace(fmt.Sprintf(s, i...)), "component", "badger")
}

func (l *l) Infof(s string, i ...interface{}) {
	common.Log.Debug(strings.TrimSpace(fmt.Sprintf(s, i...)), "component", "badger")
}

func (l *l) Debugf(s string, i ...interface{}) {
	common.Log.Debug(strings.TrimSpace(fmt.Sprintf(s, i...)), "component", "badger")
}
