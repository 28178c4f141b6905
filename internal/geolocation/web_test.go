package geolocation

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	samples []*models.PositionSample
	errs    []error
}

func (r *recorder) callback(sample *models.PositionSample, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs = append(r.errs, err)
		return
	}
	r.samples = append(r.samples, sample)
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) lastErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs[len(r.errs)-1]
}

func newTestWebSource() *WebSource {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewWebSource(logger)
}

func TestWebSource_DeliverWithoutWatch(t *testing.T) {
	src := newTestWebSource()
	err := src.Deliver(&models.PositionSample{Latitude: 1, Longitude: 2, Timestamp: time.Now().UnixMilli()})
	assert.ErrorIs(t, err, ErrNoActiveWatch)
}

func TestWebSource_DeliverReachesWatch(t *testing.T) {
	src := newTestWebSource()
	rec := &recorder{}

	id, err := src.Watch(context.Background(), WatchOptions{HighAccuracy: true}, rec.callback)
	require.NoError(t, err)
	assert.Equal(t, WatchID("1"), id)

	sample := &models.PositionSample{Latitude: 1, Longitude: 2, Timestamp: time.Now().UnixMilli()}
	require.NoError(t, src.Deliver(sample))
	require.Len(t, rec.samples, 1)
	assert.Same(t, sample, rec.samples[0])
}

func TestWebSource_ClearWatchStopsDelivery(t *testing.T) {
	src := newTestWebSource()
	rec := &recorder{}

	id, err := src.Watch(context.Background(), WatchOptions{}, rec.callback)
	require.NoError(t, err)
	require.NoError(t, src.ClearWatch(context.Background(), id))
	assert.False(t, src.Active())

	err = src.Deliver(&models.PositionSample{Timestamp: time.Now().UnixMilli()})
	assert.ErrorIs(t, err, ErrNoActiveWatch)
	assert.Empty(t, rec.samples)
}

func TestWebSource_RejectsStaleFix(t *testing.T) {
	src := newTestWebSource()
	rec := &recorder{}

	_, err := src.Watch(context.Background(), WatchOptions{MaxCachedAge: time.Second}, rec.callback)
	require.NoError(t, err)

	stale := &models.PositionSample{Timestamp: time.Now().Add(-time.Minute).UnixMilli()}
	require.NoError(t, src.Deliver(stale))
	assert.Empty(t, rec.samples)
}

func TestWebSource_InitialTimeoutIsFatal(t *testing.T) {
	src := newTestWebSource()
	rec := &recorder{}

	_, err := src.Watch(context.Background(), WatchOptions{Timeout: 20 * time.Millisecond}, rec.callback)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.errCount() > 0 }, time.Second, 5*time.Millisecond)
	got := rec.lastErr()
	assert.ErrorIs(t, got, ErrPositionTimeout)
	assert.True(t, IsFatal(got))
}

func TestWebSource_LaterTimeoutIsNotFatal(t *testing.T) {
	src := newTestWebSource()
	rec := &recorder{}

	_, err := src.Watch(context.Background(), WatchOptions{Timeout: 30 * time.Millisecond}, rec.callback)
	require.NoError(t, err)
	require.NoError(t, src.Deliver(&models.PositionSample{Timestamp: time.Now().UnixMilli()}))

	require.Eventually(t, func() bool { return rec.errCount() > 0 }, time.Second, 5*time.Millisecond)
	got := rec.lastErr()
	assert.ErrorIs(t, got, ErrPositionTimeout)
	assert.False(t, IsFatal(got))
}

func TestWebSource_FailMapsBrowserCodes(t *testing.T) {
	src := newTestWebSource()
	rec := &recorder{}

	_, err := src.Watch(context.Background(), WatchOptions{}, rec.callback)
	require.NoError(t, err)

	require.NoError(t, src.Fail(CodePermissionDenied, "user said no"))
	require.NoError(t, src.Fail(CodePositionUnavailable, ""))

	require.Len(t, rec.errs, 2)
	assert.ErrorIs(t, rec.errs[0], ErrPermissionDenied)
	assert.True(t, IsFatal(rec.errs[0]))
	assert.Contains(t, rec.errs[0].Error(), "user said no")
	assert.ErrorIs(t, rec.errs[1], ErrSourceUnavailable)
	assert.True(t, errors.Is(rec.errs[1], ErrSourceUnavailable))
}
