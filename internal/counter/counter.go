// Package counter implements the Redis-backed visit counter service.
package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const hitsKey = "hits"

// Incrementer is the slice of the Redis client the counter needs.
type Incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

type Service struct {
	rdb Incrementer
}

func New(rdb Incrementer) *Service {
	return &Service{rdb: rdb}
}

// Hit increments the visit counter and returns the new total.
func (s *Service) Hit(ctx context.Context) (int64, error) {
	count, err := s.rdb.Incr(ctx, hitsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("increment visit counter: %w", err)
	}
	return count, nil
}
