package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avetisov/apptcore/config"
	"github.com/avetisov/apptcore/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache caches read-mostly schedule configuration: booking policies and
// services. Conflict state (bookings, holds) is never cached — conflict
// checks must see every committed row, so they always hit postgres.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func (c *RedisCache) GetPolicy(ctx context.Context, businessID int64) (*domain.BookingPolicy, error) {
	var p domain.BookingPolicy
	ok, err := c.get(ctx, policyKey(businessID), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (c *RedisCache) SetPolicy(ctx context.Context, p *domain.BookingPolicy) error {
	return c.set(ctx, policyKey(p.BusinessID), p)
}

func (c *RedisCache) GetService(ctx context.Context, serviceID int64) (*domain.Service, error) {
	var s domain.Service
	ok, err := c.get(ctx, serviceKey(serviceID), &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *RedisCache) SetService(ctx context.Context, s *domain.Service) error {
	return c.set(ctx, serviceKey(s.ID), s)
}

func (c *RedisCache) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

func policyKey(businessID int64) string {
	return fmt.Sprintf("cache:policy:%d", businessID)
}

func serviceKey(serviceID int64) string {
	return fmt.Sprintf("cache:service:%d", serviceID)
}
