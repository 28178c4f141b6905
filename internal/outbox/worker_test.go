package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	failures int
	calls    int
}

func (s *flakyStore) Create(_ context.Context, d *models.Detection) (*models.SpeedBump, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("store unavailable")
	}
	return &models.SpeedBump{ID: uuid.New(), Latitude: d.Latitude, Longitude: d.Longitude, DetectedAt: d.DetectedAt}, nil
}

func newTestWorker(store Creator, onPersisted func(*models.SpeedBump), retries int) *Worker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewWorker(nil, store, onPersisted, WorkerConfig{Key: "test", MaxRetries: retries, BaseDelay: time.Millisecond}, logger)
}

func TestDeliver_RetriesUntilSuccess(t *testing.T) {
	store := &flakyStore{failures: 2}
	var persisted []*models.SpeedBump
	w := newTestWorker(store, func(b *models.SpeedBump) { persisted = append(persisted, b) }, 5)

	ok := w.deliver(context.Background(), &models.Detection{Latitude: 55.75, Longitude: 37.61, DetectedAt: time.Now()})

	assert.True(t, ok)
	assert.Equal(t, 3, store.calls)
	assert.Len(t, persisted, 1)
}

func TestDeliver_GivesUpAfterMaxRetries(t *testing.T) {
	store := &flakyStore{failures: 10}
	called := false
	w := newTestWorker(store, func(*models.SpeedBump) { called = true }, 3)

	ok := w.deliver(context.Background(), &models.Detection{DetectedAt: time.Now()})

	assert.False(t, ok)
	assert.Equal(t, 3, store.calls)
	assert.False(t, called)
}

func TestDeliver_StopsOnCancel(t *testing.T) {
	store := &flakyStore{failures: 10}
	w := newTestWorker(store, nil, 5)
	w.cfg.BaseDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := w.deliver(ctx, &models.Detection{DetectedAt: time.Now()})
	assert.False(t, ok)
	assert.Equal(t, 1, store.calls)
}

// memoryList - список Redis в памяти: LPUSH слева, BRPOP справа
type memoryList struct {
	mu     sync.Mutex
	values []string
}

func (l *memoryList) LPush(_ context.Context, _ string, values ...interface{}) *redis.IntCmd {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		var s string
		switch val := v.(type) {
		case []byte:
			s = string(val)
		case string:
			s = val
		}
		l.values = append([]string{s}, l.values...)
	}
	return redis.NewIntResult(int64(len(l.values)), nil)
}

func (l *memoryList) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	l.mu.Lock()
	if n := len(l.values); n > 0 {
		v := l.values[n-1]
		l.values = l.values[:n-1]
		l.mu.Unlock()
		return redis.NewStringSliceResult([]string{keys[0], v}, nil)
	}
	l.mu.Unlock()
	sleep(ctx, time.Millisecond)
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (l *memoryList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// latStore не сохраняет детекции с заданной широтой и запоминает порядок вызовов
type latStore struct {
	mu      sync.Mutex
	badLat  float64
	calls   []float64
	created int
}

func (s *latStore) Create(_ context.Context, d *models.Detection) (*models.SpeedBump, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d.Latitude)
	if d.Latitude == s.badLat {
		return nil, errors.New("constraint violation")
	}
	s.created++
	return &models.SpeedBump{ID: uuid.New(), Latitude: d.Latitude, Longitude: d.Longitude, DetectedAt: d.DetectedAt}, nil
}

func (s *latStore) snapshot() ([]float64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.calls...), s.created
}

func enqueue(t *testing.T, list *memoryList, d *models.Detection) {
	payload, err := json.Marshal(queuedDetection{Detection: d})
	require.NoError(t, err)
	list.LPush(context.Background(), "test", payload)
}

func TestRun_PoisonDetectionDoesNotBlockQueue(t *testing.T) {
	list := &memoryList{}
	store := &latStore{badLat: 1}
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	w := NewWorker(list, store, nil, WorkerConfig{Key: "test", MaxRetries: 1, BaseDelay: time.Millisecond, MaxAttempts: 3}, logger)

	// плохая детекция первой попадает под BRPOP
	enqueue(t, list, &models.Detection{Latitude: 1, Longitude: 1, DetectedAt: time.Now()})
	enqueue(t, list, &models.Detection{Latitude: 2, Longitude: 2, DetectedAt: time.Now()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		calls, _ := store.snapshot()
		return len(calls) == 4 && list.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	calls, created := store.snapshot()
	assert.Equal(t, []float64{1, 2, 1, 1}, calls)
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, list.Len())
}

func TestRequeue_IncrementsAttempts(t *testing.T) {
	list := &memoryList{}
	w := newTestWorker(&flakyStore{}, nil, 1)
	w.redisClient = list
	w.cfg.MaxAttempts = 5

	w.requeue(context.Background(), queuedDetection{Detection: &models.Detection{Latitude: 3, DetectedAt: time.Now()}, Attempts: 1})

	require.Equal(t, 1, list.Len())
	var item queuedDetection
	require.NoError(t, json.Unmarshal([]byte(list.values[0]), &item))
	assert.Equal(t, 2, item.Attempts)
	assert.Equal(t, 3.0, item.Detection.Latitude)
}

func TestRequeue_DropsAfterMaxAttempts(t *testing.T) {
	list := &memoryList{}
	w := newTestWorker(&flakyStore{}, nil, 1)
	w.redisClient = list
	w.cfg.MaxAttempts = 2

	w.requeue(context.Background(), queuedDetection{Detection: &models.Detection{DetectedAt: time.Now()}, Attempts: 1})

	assert.Equal(t, 0, list.Len())
}
