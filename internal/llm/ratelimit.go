package llm

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimited gives every Request.User its own token bucket in front of next
type RateLimited struct {
	next  Generator
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ Generator = (*RateLimited)(nil)

// NewRateLimited allows perMinute generations per user with the given burst
func NewRateLimited(next Generator, perMinute float64, burst int) *RateLimited {
	return &RateLimited{
		next:     next,
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (r *RateLimited) limiter(user string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[user]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[user] = l
	}
	return l
}

func (r *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if !r.limiter(req.User).Allow() {
		return "", ErrRateLimited
	}
	return r.next.Generate(ctx, req)
}
