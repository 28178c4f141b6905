package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/service"
)

// queuedDetection - элемент очереди. Attempts растет при каждом возврате в очередь.
type queuedDetection struct {
	Detection *models.Detection `json:"detection"`
	Attempts  int               `json:"attempts"`
}

// RedisPublisher складывает детекции, которые не удалось записать, в список Redis
type RedisPublisher struct {
	redisClient *redis.Client
	key         string
	maxSize     int
}

func NewRedisPublisher(client *redis.Client, key string, maxSize int) service.Outbox {
	return &RedisPublisher{
		redisClient: client,
		key:         key,
		maxSize:     maxSize,
	}
}

// Enqueue кладет детекцию в левую часть списка. При переполнении теряются самые старые.
func (p *RedisPublisher) Enqueue(ctx context.Context, d *models.Detection) error {
	payload, err := json.Marshal(queuedDetection{Detection: d})
	if err != nil {
		return fmt.Errorf("failed to marshal detection: %w", err)
	}

	_, err = p.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, p.key, payload)
		if p.maxSize > 0 {
			pipe.LTrim(ctx, p.key, 0, int64(p.maxSize-1))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue detection to Redis: %w", err)
	}
	return nil
}
