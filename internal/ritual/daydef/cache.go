package daydef

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

// Cache memoizes a Source. Concurrent misses for the same day share one load; failed loads
// are not cached.
type Cache struct {
	src   Source
	group singleflight.Group

	mu   sync.RWMutex
	days map[int]*ritual.DayDefinition
}

func NewCache(src Source) *Cache {
	return &Cache{src: src, days: map[int]*ritual.DayDefinition{}}
}

func (c *Cache) Load(ctx context.Context, day int) (*ritual.DayDefinition, error) {
	c.mu.RLock()
	def, ok := c.days[day]
	c.mu.RUnlock()
	if ok {
		return cloneDef(def), nil
	}
	v, err, _ := c.group.Do(strconv.Itoa(day), func() (any, error) {
		loaded, err := c.src.Load(ctx, day)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.days[day] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneDef(v.(*ritual.DayDefinition)), nil
}

// Invalidate drops every cached day.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.days = map[int]*ritual.DayDefinition{}
	c.mu.Unlock()
}

func cloneDef(d *ritual.DayDefinition) *ritual.DayDefinition {
	if d == nil {
		return nil
	}
	out := *d
	out.Prompts = append([]string(nil), d.Prompts...)
	return &out
}
