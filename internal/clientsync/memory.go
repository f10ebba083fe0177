package clientsync

import (
	"fmt"
	"sync"
)

// MemoryCache is a QueryCache for a single session.
type MemoryCache struct {
	mu            sync.Mutex
	entries       map[string]any
	invalidations int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]any{}}
}

func (c *MemoryCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.invalidations++
}

func (c *MemoryCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MemoryCache) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

// MemoryNavigator tracks the displayed day and every redirect issued.
type MemoryNavigator struct {
	mu        sync.Mutex
	displayed int
	redirects []int
}

func NewMemoryNavigator(day int) *MemoryNavigator {
	return &MemoryNavigator{displayed: day}
}

func (n *MemoryNavigator) DisplayedDay() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.displayed
}

func (n *MemoryNavigator) Redirect(day int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.displayed = day
	n.redirects = append(n.redirects, day)
}

// Visit simulates the user opening a day URL directly.
func (n *MemoryNavigator) Visit(day int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.displayed = day
}

func (n *MemoryNavigator) Redirects() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.redirects...)
}

func (n *MemoryNavigator) Path() string {
	return DayPath(n.DisplayedDay())
}

func DayPath(day int) string {
	return fmt.Sprintf("/ritual/%d", day)
}
