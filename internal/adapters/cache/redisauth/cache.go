// Package redisauth cachea respuestas de autorización por usuario.
// Es puramente accesorio: si Redis no está o falla, las consultas caen
// al repositorio y el sistema sigue respondiendo lo mismo, más lento.
package redisauth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"makerspace-access/internal/platform/logger"
)

const defaultTTL = 5 * time.Minute

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// New verifica la conexión con un ping antes de devolver el cache.
func New(addr, password string, db int, log logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	if log == nil {
		log = logger.Nop{}
	}
	return &Cache{client: client, ttl: defaultTTL, log: log}, nil
}

// NewWithClient existe para los tests (miniredis).
func NewWithClient(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Una hash por usuario: invalidar es borrar una sola clave.
func userKey(userID string) string {
	return "authz:" + userID
}

func (c *Cache) GetAccess(ctx context.Context, userID, resourceID string) (bool, bool) {
	val, err := c.client.HGet(ctx, userKey(userID), resourceID).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.log.Warn("redis hget fallo", map[string]any{"error": err.Error()})
		return false, false
	}
	return val == "1", true
}

func (c *Cache) SetAccess(ctx context.Context, userID, resourceID string, allowed bool) {
	key := userKey(userID)
	val := "0"
	if allowed {
		val = "1"
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, resourceID, val)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("redis hset fallo", map[string]any{"error": err.Error()})
	}
}

func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, userKey(userID)).Err(); err != nil {
		c.log.Warn("redis del fallo", map[string]any{"error": err.Error()})
	}
}
