package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/service"
)

const mergeRetries = 3

// BumpCache хранит всю коллекцию JSON-массивом под одним ключом, новые первыми
type BumpCache struct {
	redisClient *redis.Client
	key         string
}

func NewBumpCache(redisClient *redis.Client, key string) service.BumpCache {
	return &BumpCache{
		redisClient: redisClient,
		key:         key,
	}
}

// Snapshot возвращает nil без ошибки, если снимка еще нет
func (c *BumpCache) Snapshot(ctx context.Context) ([]*models.SpeedBump, error) {
	val, err := c.redisClient.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get speed bumps from cache: %w", err)
	}
	return decodeBumps(val)
}

func (c *BumpCache) Replace(ctx context.Context, bumps []*models.SpeedBump) error {
	val, err := json.Marshal(bumps)
	if err != nil {
		return fmt.Errorf("failed to marshal speed bumps for cache: %w", err)
	}
	if err := c.redisClient.Set(ctx, c.key, val, 0).Err(); err != nil {
		return fmt.Errorf("failed to set speed bumps cache: %w", err)
	}
	return nil
}

// Merge добавляет событие в начало снимка, если такого ID там еще нет
func (c *BumpCache) Merge(ctx context.Context, bump *models.SpeedBump) error {
	txf := func(tx *redis.Tx) error {
		var current []*models.SpeedBump
		val, err := tx.Get(ctx, c.key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if current, err = decodeBumps(val); err != nil {
				return err
			}
		}

		for _, b := range current {
			if b.ID == bump.ID {
				return nil
			}
		}

		data, err := json.Marshal(append([]*models.SpeedBump{bump}, current...))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < mergeRetries; i++ {
		err := c.redisClient.Watch(ctx, txf, c.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("failed to merge speed bump into cache: %w", err)
	}
	return fmt.Errorf("failed to merge speed bump into cache: %w", redis.TxFailedErr)
}

func (c *BumpCache) Clear(ctx context.Context) error {
	if err := c.redisClient.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to clear speed bumps cache: %w", err)
	}
	return nil
}

func decodeBumps(val []byte) ([]*models.SpeedBump, error) {
	var bumps []*models.SpeedBump
	if err := json.Unmarshal(val, &bumps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached speed bumps: %w", err)
	}
	return bumps, nil
}
