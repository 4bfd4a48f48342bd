package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// NumberGenerator produces a unique, human-readable order number. The two
// strategies emit non-overlapping formats by construction: counting numbers
// are VK-<6 digits>, time-derived numbers are VKT-<15 digits>.
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

var ErrNumberExhausted = errors.New("order number generation exhausted retry budget")

type counterSource interface {
	Next(ctx context.Context) (int64, error)
}

type numberIndex interface {
	NumberExists(ctx context.Context, number string) (bool, error)
}

// CountingGenerator derives numbers from a running counter and re-checks the
// store for collisions (a reset counter must not mint duplicates). Fails
// closed after maxAttempts.
type CountingGenerator struct {
	counter     counterSource
	index       numberIndex
	maxAttempts int
}

func NewCountingGenerator(counter counterSource, index numberIndex) *CountingGenerator {
	return &CountingGenerator{counter: counter, index: index, maxAttempts: 5}
}

func (g *CountingGenerator) Next(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		n, err := g.counter.Next(ctx)
		if err != nil {
			return "", fmt.Errorf("order counter unavailable: %w", err)
		}

		number := fmt.Sprintf("VK-%06d", n)

		taken, err := g.index.NumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", ErrNumberExhausted
}

// TimeGenerator mints numbers from the clock. Used when an order materializes
// out of a payment event, so it never races the running counter.
type TimeGenerator struct {
	now func() time.Time
}

func NewTimeGenerator() *TimeGenerator {
	return &TimeGenerator{now: time.Now}
}

func (g *TimeGenerator) Next(ctx context.Context) (string, error) {
	return fmt.Sprintf("VKT-%013d%02d", g.now().UnixMilli(), rand.Intn(100)), nil
}

// RedisCounter backs CountingGenerator with an atomic INCR.
type RedisCounter struct {
	rdb *redis.Client
	key string
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb, key: "orders:counter"}
}

func (c *RedisCounter) Next(ctx context.Context) (int64, error) {
	return c.rdb.Incr(ctx, c.key).Result()
}
