package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"bookstore-service/config"
)

var Ctx = context.Background()
var Redis *redis.Client

// ConnectRedis initializes the shared client. The service works without
// Redis; callers treat a nil client as a cache miss.
func ConnectRedis(cfg *config.Config) error {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if _, err := client.Ping(Ctx).Result(); err != nil {
		return err
	}

	Redis = client
	log.Println("Redis connected")
	return nil
}

// GetJSON loads key into v. Returns false on miss, decode failure, or
// when Redis is not configured.
func GetJSON(key string, v interface{}) bool {
	if Redis == nil {
		return false
	}
	data, err := Redis.Get(Ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Failed to decode cached %s: %v", key, err)
		return false
	}
	return true
}

// SetJSON stores v under key with a TTL. Failures are logged, not returned;
// the cache is best-effort.
func SetJSON(key string, v interface{}, ttl time.Duration) {
	if Redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := Redis.Set(Ctx, key, data, ttl).Err(); err != nil {
		log.Printf("Failed to cache %s: %v", key, err)
	}
}
