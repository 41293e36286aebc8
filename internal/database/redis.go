package database

import (
	"fmt"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient creates the client backing the catalog cache
func NewRedisClient(config *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password:     config.Redis.Password,
		DB:           config.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})
}
