package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/speedbump_logger/internal/detector"
	"github.com/shenikar/speedbump_logger/internal/geolocation"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/shenikar/speedbump_logger/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeSource - управляемый из теста источник позиций
type fakeSource struct {
	kind geolocation.Kind

	mu         sync.Mutex
	watches    map[geolocation.WatchID]geolocation.Callback
	lastOpts   geolocation.WatchOptions
	watchCalls int
	clearCalls int
	pulses     int
	permission error
	watchErr   error
	nextID     int
}

func newFakeSource(kind geolocation.Kind) *fakeSource {
	return &fakeSource{kind: kind, watches: make(map[geolocation.WatchID]geolocation.Callback)}
}

func (s *fakeSource) Kind() geolocation.Kind { return s.kind }

func (s *fakeSource) Watch(_ context.Context, opts geolocation.WatchOptions, cb geolocation.Callback) (geolocation.WatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchCalls++
	if s.watchErr != nil {
		return "", s.watchErr
	}
	s.nextID++
	id := geolocation.WatchID(fmt.Sprintf("w%d", s.nextID))
	s.watches[id] = cb
	s.lastOpts = opts
	return id, nil
}

func (s *fakeSource) ClearWatch(_ context.Context, id geolocation.WatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	delete(s.watches, id)
	return nil
}

func (s *fakeSource) RequestPermission(context.Context) error {
	return s.permission
}

func (s *fakeSource) Pulse(context.Context, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulses++
	return nil
}

// emit вызывает callback всех активных наблюдений
func (s *fakeSource) emit(sample *models.PositionSample, err error) {
	s.mu.Lock()
	cbs := make([]geolocation.Callback, 0, len(s.watches))
	for _, cb := range s.watches {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(sample, err)
	}
}

func (s *fakeSource) counts() (watch, clear int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchCalls, s.clearCalls
}

func speedSample(lat, lon, mps float64, ts int64) *models.PositionSample {
	return &models.PositionSample{Latitude: lat, Longitude: lon, Speed: &mps, Timestamp: ts}
}

func newTestController(t *testing.T, src *fakeSource) (*MonitoringController, *mocks.MockPersistenceGateway) {
	ctrl := gomock.NewController(t)
	gw := mocks.NewMockPersistenceGateway(ctrl)
	logger := testLogger()
	cfg := ControllerConfig{
		NativeTimeout:           5 * time.Second,
		WebTimeout:              10 * time.Second,
		HapticPulse:             200 * time.Millisecond,
		ProximityIndexThreshold: 512,
	}
	return NewMonitoringController(src, gw, detector.New(detector.DefaultConfig(), logger), cfg, logger), gw
}

func TestStop_FromIdle_NoClearWatch(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, _ := newTestController(t, src)

	state, err := c.Stop(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsMonitoring)

	_, clears := src.counts()
	assert.Equal(t, 0, clears)
}

func TestStart_Twice_SingleWatch(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, _ := newTestController(t, src)
	ctx := context.Background()

	_, err := c.Start(ctx)
	require.NoError(t, err)
	state, err := c.Start(ctx)
	require.NoError(t, err)

	watches, _ := src.counts()
	assert.Equal(t, 1, watches)
	assert.True(t, state.IsMonitoring)
	assert.Equal(t, "web", state.Backend)
	assert.Equal(t, 10*time.Second, src.lastOpts.Timeout)
	assert.True(t, src.lastOpts.HighAccuracy)
	assert.Zero(t, src.lastOpts.MaxCachedAge)
}

func TestStart_NativeTimeout(t *testing.T) {
	src := newFakeSource(geolocation.KindNative)
	c, _ := newTestController(t, src)

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, src.lastOpts.Timeout)
}

func TestStart_PermissionDenied(t *testing.T) {
	src := newFakeSource(geolocation.KindNative)
	src.permission = geolocation.ErrPermissionDenied
	c, _ := newTestController(t, src)

	state, err := c.Start(context.Background())
	assert.ErrorIs(t, err, geolocation.ErrPermissionDenied)
	assert.False(t, state.IsMonitoring)
	assert.NotEmpty(t, state.LastError)

	watches, _ := src.counts()
	assert.Equal(t, 0, watches)
}

func TestStart_WatchFails(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	src.watchErr = geolocation.ErrSourceUnavailable
	c, _ := newTestController(t, src)

	state, err := c.Start(context.Background())
	assert.ErrorIs(t, err, geolocation.ErrSourceUnavailable)
	assert.False(t, state.IsMonitoring)
}

func TestStop_ResetsSpeedAndIgnoresLateSamples(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, _ := newTestController(t, src)
	ctx := context.Background()

	_, err := c.Start(ctx)
	require.NoError(t, err)

	// Сохраняем callback, чтобы выдать позицию уже после остановки
	var late geolocation.Callback
	src.mu.Lock()
	for _, cb := range src.watches {
		late = cb
	}
	src.mu.Unlock()

	src.emit(speedSample(55.75, 37.61, 10, 1000), nil)
	assert.InDelta(t, 36.0, c.State().CurrentSpeed, 1e-9)

	state, err := c.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, state.IsMonitoring)
	assert.Zero(t, state.CurrentSpeed)
	assert.Nil(t, state.LastPosition)

	late(speedSample(55.75, 37.61, 20, 2000), nil)
	state = c.State()
	assert.Zero(t, state.CurrentSpeed)
	assert.Nil(t, state.LastPosition)

	_, clears := src.counts()
	assert.Equal(t, 1, clears)
}

func TestDetection_WritesAndMerges(t *testing.T) {
	src := newFakeSource(geolocation.KindNative)
	c, gw := newTestController(t, src)
	ctx := context.Background()
	saved := &models.SpeedBump{ID: uuid.New(), Latitude: 55.7501, Longitude: 37.6101, Speed: 5.4, DetectedAt: time.UnixMilli(2000).UTC()}

	gw.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, d *models.Detection) (*models.SpeedBump, error) {
		assert.InDelta(t, 55.7501, d.Latitude, 1e-9)
		assert.InDelta(t, 5.4, d.SpeedKmh, 1e-9)
		return saved, nil
	}).Times(1)
	gw.EXPECT().Mirror(gomock.Any(), saved).Times(1)

	_, err := c.Start(ctx)
	require.NoError(t, err)

	src.emit(speedSample(55.75, 37.61, 40/detector.MpsToKmh, 1000), nil)
	src.emit(speedSample(55.7501, 37.6101, 1.5, 2000), nil)

	bumps := c.Bumps()
	require.Len(t, bumps, 1)
	assert.Equal(t, saved.ID, bumps[0].ID)

	state := c.State()
	assert.Equal(t, 1, state.BumpCount)
	require.NotNil(t, state.DistanceToNearest)
	assert.InDelta(t, 0, *state.DistanceToNearest, 1e-6)

	src.mu.Lock()
	assert.Equal(t, 1, src.pulses)
	src.mu.Unlock()
}

func TestDetection_WriteFails_CollectionUnchanged(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, gw := newTestController(t, src)
	ctx := context.Background()

	gw.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil, ErrStoreUnavailable).Times(1)

	_, err := c.Start(ctx)
	require.NoError(t, err)

	src.emit(speedSample(55.75, 37.61, 40/detector.MpsToKmh, 1000), nil)
	src.emit(speedSample(55.75, 37.61, 0, 2000), nil)

	assert.Empty(t, c.Bumps())
	assert.True(t, c.State().IsMonitoring)
}

func TestMerge_DeduplicatesByID(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, gw := newTestController(t, src)
	ctx := context.Background()
	bump := &models.SpeedBump{ID: uuid.New(), Latitude: 55.75, Longitude: 37.61}

	gw.EXPECT().Mirror(ctx, bump).Times(1)

	assert.True(t, c.Merge(ctx, bump))
	assert.False(t, c.Merge(ctx, bump))
	assert.Len(t, c.Bumps(), 1)
}

func TestInit_LoadsAndSubscribes(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, gw := newTestController(t, src)
	ctx := context.Background()
	loaded := []*models.SpeedBump{{ID: uuid.New(), Latitude: 55.75, Longitude: 37.61}}
	remote := &models.SpeedBump{ID: uuid.New(), Latitude: 55.76, Longitude: 37.62}

	var handler func(*models.SpeedBump)
	gw.EXPECT().Load(ctx).Return(loaded)
	gw.EXPECT().Subscribe(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, h func(*models.SpeedBump)) (io.Closer, error) {
		handler = h
		return closerFunc(func() error { return nil }), nil
	})
	gw.EXPECT().Mirror(ctx, remote).Times(1)

	require.NoError(t, c.Init(ctx))
	require.NotNil(t, handler)

	handler(remote)
	handler(remote)

	bumps := c.Bumps()
	require.Len(t, bumps, 2)
	assert.Equal(t, remote.ID, bumps[0].ID)
	assert.Equal(t, loaded[0].ID, bumps[1].ID)

	require.NoError(t, c.Close())
}

func TestInit_SubscribeFails(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, gw := newTestController(t, src)
	ctx := context.Background()

	gw.EXPECT().Load(ctx).Return([]*models.SpeedBump{})
	gw.EXPECT().Subscribe(ctx, gomock.Any()).Return(nil, ErrStoreUnavailable)

	assert.NoError(t, c.Init(ctx))
	assert.Empty(t, c.Bumps())
}

func TestFatalError_StopsMonitoring(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, _ := newTestController(t, src)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	src.emit(nil, geolocation.NewPositionError(geolocation.CodePermissionDenied, "denied"))

	assert.Eventually(t, func() bool {
		return !c.State().IsMonitoring
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, c.State().LastError, "denied")

	_, clears := src.counts()
	assert.Equal(t, 1, clears)
}

func TestTransientError_KeepsMonitoring(t *testing.T) {
	src := newFakeSource(geolocation.KindNative)
	c, _ := newTestController(t, src)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	src.emit(nil, geolocation.NewPositionError(geolocation.CodeTimeout, "no fix"))

	state := c.State()
	assert.True(t, state.IsMonitoring)
	assert.NotEmpty(t, state.LastError)
}

func TestClearHistory_EmptiesEvenWhenRemoteFails(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, gw := newTestController(t, src)
	ctx := context.Background()
	bump := &models.SpeedBump{ID: uuid.New(), Latitude: 55.75, Longitude: 37.61}

	gw.EXPECT().Mirror(ctx, bump)
	gw.EXPECT().Clear(ctx).Return(errors.New("store down"))

	c.Merge(ctx, bump)
	require.NoError(t, c.ClearHistory(ctx))
	assert.Empty(t, c.Bumps())
	assert.Nil(t, c.State().DistanceToNearest)
}

func TestClearHistory_KeepsBumpMergedDuringClear(t *testing.T) {
	src := newFakeSource(geolocation.KindWeb)
	c, gw := newTestController(t, src)
	ctx := context.Background()
	old := &models.SpeedBump{ID: uuid.New(), Latitude: 55.75, Longitude: 37.61}
	peer := &models.SpeedBump{ID: uuid.New(), Latitude: 55.76, Longitude: 37.62}

	// кеш с дедупликацией по ID, как у BumpCache.Merge
	var mu sync.Mutex
	cache := map[uuid.UUID]*models.SpeedBump{}
	gw.EXPECT().Mirror(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, b *models.SpeedBump) {
		mu.Lock()
		defer mu.Unlock()
		cache[b.ID] = b
	}).AnyTimes()
	gw.EXPECT().Clear(ctx).DoAndReturn(func(ctx context.Context) error {
		mu.Lock()
		cache = map[uuid.UUID]*models.SpeedBump{}
		mu.Unlock()
		// событие от другого клиента приходит сразу после очистки кеша
		c.Merge(ctx, peer)
		return nil
	})

	c.Merge(ctx, old)
	require.NoError(t, c.ClearHistory(ctx))

	bumps := c.Bumps()
	require.Len(t, bumps, 1)
	assert.Equal(t, peer.ID, bumps[0].ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, cache, 1)
	assert.Contains(t, cache, peer.ID)
}

func TestWritePath_WithRealGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockBumpStore(ctrl)
	cache := mocks.NewMockBumpCache(ctrl)
	logger := testLogger()
	gw := NewPersistenceGateway(store, cache, mocks.NewMockChangeFeed(ctrl), nil, GatewayConfig{StoreTimeout: time.Second}, logger)

	src := newFakeSource(geolocation.KindWeb)
	c := NewMonitoringController(src, gw, detector.New(detector.DefaultConfig(), logger), ControllerConfig{ProximityIndexThreshold: 512}, logger)
	saved := &models.SpeedBump{ID: uuid.New(), Latitude: 55.75, Longitude: 37.61}

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(saved, nil)
	cache.EXPECT().Merge(gomock.Any(), saved).Return(nil).Times(1)

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	src.emit(speedSample(55.75, 37.61, 40/detector.MpsToKmh, 1000), nil)
	src.emit(speedSample(55.75, 37.61, 0, 2000), nil)

	bumps := c.Bumps()
	require.NotEmpty(t, bumps)
	assert.Equal(t, saved.ID, bumps[0].ID)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
