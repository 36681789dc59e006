// Package viewcache persists resolved ticker views across sessions. Entries
// are msgpack encoded and kept behind a byte Store so the backend can be
// memory, SQLite, Redis or Postgres.
package viewcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "tickerlens-api/internal/cache"
	"tickerlens-api/pkg/viewstate"
)

// Store is a flat byte key/value store. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Cache saves and loads view snapshots. Expired entries are ignored on read
// and never deleted.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = cachekeys.ViewTTL(ttl) }
}

// WithClock overrides the clock used for writes and freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Cache on top of store.
func New(store Store, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, errors.New("viewcache: store is required")
	}
	c := &Cache{store: store, ttl: cachekeys.DefaultViewTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

type lastPointer struct {
	Ticker    string    `json:"ticker"`
	WrittenAt time.Time `json:"writtenAt"`
}

// Save writes the view under ticker and moves the last-active pointer to it.
func (c *Cache) Save(ctx context.Context, ticker string, view viewstate.ViewState) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return errors.New("viewcache: ticker is required")
	}
	now := c.now()
	data, err := encode(viewstate.Entry{Ticker: ticker, View: view, WrittenAt: now})
	if err != nil {
		return fmt.Errorf("viewcache: encode %s: %w", ticker, err)
	}
	if err := c.store.Put(ctx, cachekeys.ViewKey(ticker), data); err != nil {
		return fmt.Errorf("viewcache: put %s: %w", ticker, err)
	}
	ptr, err := encode(lastPointer{Ticker: ticker, WrittenAt: now})
	if err != nil {
		return fmt.Errorf("viewcache: encode last pointer: %w", err)
	}
	if err := c.store.Put(ctx, cachekeys.LastViewKey(), ptr); err != nil {
		return fmt.Errorf("viewcache: put last pointer: %w", err)
	}
	return nil
}

// Load returns the fresh entry for ticker, or nil when none exists. An empty
// ticker follows the last-active pointer.
func (c *Cache) Load(ctx context.Context, ticker string) (*viewstate.Entry, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		raw, err := c.store.Get(ctx, cachekeys.LastViewKey())
		if err != nil {
			return nil, fmt.Errorf("viewcache: get last pointer: %w", err)
		}
		if raw == nil {
			return nil, nil
		}
		var ptr lastPointer
		if err := decode(raw, &ptr); err != nil {
			return nil, fmt.Errorf("viewcache: decode last pointer: %w", err)
		}
		if ptr.Ticker == "" {
			return nil, nil
		}
		ticker = ptr.Ticker
	}

	raw, err := c.store.Get(ctx, cachekeys.ViewKey(ticker))
	if err != nil {
		return nil, fmt.Errorf("viewcache: get %s: %w", ticker, err)
	}
	if raw == nil {
		return nil, nil
	}
	var entry viewstate.Entry
	if err := decode(raw, &entry); err != nil {
		return nil, fmt.Errorf("viewcache: decode %s: %w", ticker, err)
	}
	if !entry.Fresh(c.now(), c.ttl) {
		logx.WithContext(ctx).Debugf("viewcache: %s expired (written %s)", ticker, entry.WrittenAt.Format(time.RFC3339))
		return nil, nil
	}
	return &entry, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
