// Package cache keeps whole rendered responses for a fixed amount of time.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a cached page is served before it is rendered again.
const DefaultTTL = 20 * time.Second

// Page is a cached response.
type Page struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store holds pages by key. Entries expire after the ttl the store was created with.
// Clear drops every entry at once.
type Store interface {
	Get(ctx context.Context, key string) (*Page, bool, error)
	Set(ctx context.Context, key string, page *Page) error
	Clear(ctx context.Context) error
}
