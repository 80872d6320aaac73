package middleware

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "greeting_ops_limiter"

type RateLimitConfig struct {
	RequestsPerPeriod int
	// Defaults to one second.
	Period time.Duration
	Store  limiter.Store
}

// RateLimit caps requests per client IP. Rejected requests get 429 with the
// X-RateLimit-* headers set.
func RateLimit(config RateLimitConfig) mux.MiddlewareFunc {
	period := config.Period
	if period <= 0 {
		period = time.Second
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  int64(config.RequestsPerPeriod),
	})
	return limiterhttp.NewMiddleware(instance).Handler
}

func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

// NewRedisStore shares counters between replicas through redis.
func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   rateLimitPrefix,
		MaxRetry: 3,
	})
}
