// Package affirmation keeps the affirmation of the day.
package affirmation

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/utils"
)

// Cache holds one affirmation per calendar date. The zero value is not usable; call New.
type Cache struct {
	mu   sync.Mutex
	pool []string
	pick func(n int) int

	date string
	text string
}

// New returns a cache drawing from pool, or the built-in list when pool is empty
func New(pool []string) *Cache {
	if len(pool) == 0 {
		pool = constants.Affirmations
	}
	return &Cache{pool: pool, pick: rand.IntN}
}

// Today returns the affirmation for now's date, drawing a fresh one after the date rolls over
func (c *Cache) Today(now time.Time) string {
	key := utils.DateKey(now)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date != key || c.text == "" {
		c.text = c.pool[c.pick(len(c.pool))]
		c.date = key
	}
	return c.text
}

// Invalidate drops the cached affirmation so the next call draws again
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.date, c.text = "", ""
	c.mu.Unlock()
}
