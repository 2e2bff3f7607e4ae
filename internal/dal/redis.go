package dal

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"wht-store-pay/internal/config"
)

var RedisClient *redis.Client

// InitRedis is only called when the pending-payment registry lives in redis.
func InitRedis() {
	c := config.C.Redis
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}
}
