package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a Store local to the process, backed by an expiring LRU.
type Memory struct {
	lru *expirable.LRU[string, *Page]
}

// NewMemory returns a Memory store holding at most size pages for ttl each.
// A size of 0 means no limit.
func NewMemory(size int, ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		lru: expirable.NewLRU[string, *Page](size, nil, ttl),
	}
}

var _ Store = &Memory{}

func (m *Memory) Get(_ context.Context, key string) (*Page, bool, error) {
	page, ok := m.lru.Get(key)
	return page, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, page *Page) error {
	m.lru.Add(key, page)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.lru.Purge()
	return nil
}
