package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
)

const popTimeout = 5 * time.Second

// Creator - авторитетное хранилище, в которое worker дописывает детекции
type Creator interface {
	Create(ctx context.Context, d *models.Detection) (*models.SpeedBump, error)
}

// redisQueue - часть *redis.Client, нужная worker
type redisQueue interface {
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

type WorkerConfig struct {
	Key        string
	MaxRetries int
	BaseDelay  time.Duration
	// MaxAttempts - сколько раз детекция проходит через очередь, прежде чем будет отброшена
	MaxAttempts int
}

// Worker перекладывает детекции из очереди в хранилище
type Worker struct {
	redisClient redisQueue
	store       Creator
	onPersisted func(*models.SpeedBump)
	cfg         WorkerConfig
	logger      *logrus.Logger
}

// NewWorker создает Worker. onPersisted вызывается для каждого сохраненного события.
func NewWorker(redisClient redisQueue, store Creator, onPersisted func(*models.SpeedBump), cfg WorkerConfig, logger *logrus.Logger) *Worker {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		redisClient: redisClient,
		store:       store,
		onPersisted: onPersisted,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run обрабатывает очередь до отмены ctx
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting outbox worker...")
	for {
		if ctx.Err() != nil {
			w.logger.Info("Stopping outbox worker.")
			return nil
		}

		// BRPOP - блокирующее извлечение из правой части списка (очереди)
		result, err := w.redisClient.BRPop(ctx, popTimeout, w.cfg.Key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			w.logger.WithError(err).Error("Failed to pop detection from Redis")
			sleep(ctx, w.cfg.BaseDelay)
			continue
		}

		// result[0] - ключ, result[1] - значение
		var item queuedDetection
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil || item.Detection == nil {
			w.logger.WithError(err).Error("Failed to unmarshal detection from Redis")
			continue
		}

		if !w.deliver(ctx, item.Detection) {
			w.requeue(ctx, item)
		}
	}
}

// deliver пишет детекцию в хранилище с экспоненциальной задержкой между попытками
func (w *Worker) deliver(ctx context.Context, d *models.Detection) bool {
	log := w.logger.WithFields(logrus.Fields{
		"service":     "outbox",
		"detected_at": d.DetectedAt,
	})
	log.Debug("Processing queued detection...")

	delay := w.cfg.BaseDelay
	for i := 0; i < w.cfg.MaxRetries; i++ {
		bump, err := w.store.Create(ctx, d)
		if err == nil {
			log.WithField("bump_id", bump.ID).Info("Queued detection persisted.")
			if w.onPersisted != nil {
				w.onPersisted(bump)
			}
			return true
		}

		log.WithError(err).Warnf("Failed to persist queued detection. Retrying in %v. Retries left: %d", delay, w.cfg.MaxRetries-1-i)
		if i == w.cfg.MaxRetries-1 || !sleep(ctx, delay) {
			break
		}
		delay *= 2 // Экспоненциальная задержка
	}

	log.Errorf("Failed to persist queued detection after %d retries.", w.cfg.MaxRetries)
	return false
}

// requeue возвращает детекцию в начало списка, BRPOP заберет ее после остальных.
// После MaxAttempts проходов детекция отбрасывается.
func (w *Worker) requeue(ctx context.Context, item queuedDetection) {
	log := w.logger.WithFields(logrus.Fields{
		"service":     "outbox",
		"detected_at": item.Detection.DetectedAt,
		"attempts":    item.Attempts + 1,
	})
	item.Attempts++
	if item.Attempts >= w.cfg.MaxAttempts {
		log.Error("Queued detection dropped after max attempts")
		return
	}

	payload, err := json.Marshal(item)
	if err != nil {
		log.WithError(err).Error("Failed to marshal detection, dropped")
		return
	}
	// ctx мог быть уже отменен, детекцию все равно нужно вернуть
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := w.redisClient.LPush(rctx, w.cfg.Key, payload).Err(); err != nil {
		log.WithError(err).Error("Failed to requeue detection, dropped")
		return
	}
	sleep(ctx, w.cfg.BaseDelay)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
