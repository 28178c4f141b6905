package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shenikar/speedbump_logger/internal/detector"
	"github.com/shenikar/speedbump_logger/internal/geo"
	"github.com/shenikar/speedbump_logger/internal/geolocation"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=monitoring.go -destination=mocks/mock_monitoring.go -package=mocks

// MonitoringService определяет контракт управления сессией мониторинга
type MonitoringService interface {
	Start(ctx context.Context) (models.MonitoringState, error)
	Stop(ctx context.Context) (models.MonitoringState, error)
	ClearHistory(ctx context.Context) error
	State() models.MonitoringState
	Bumps() []*models.SpeedBump
}

type ControllerConfig struct {
	NativeTimeout           time.Duration
	WebTimeout              time.Duration
	HapticPulse             time.Duration
	ProximityIndexThreshold int
}

// MonitoringController владеет состоянием сессии: скорость, последняя позиция,
// коллекция событий и расстояние до ближайшего.
type MonitoringController struct {
	source   geolocation.Source
	gateway  PersistenceGateway
	detector *detector.Detector
	cfg      ControllerConfig
	logger   *logrus.Logger

	// lifecycle сериализует Start/Stop/ClearHistory/Close
	lifecycle sync.Mutex

	mu           sync.RWMutex
	baseCtx      context.Context
	monitoring   bool
	session      uint64
	watchID      geolocation.WatchID
	currentSpeed float64
	lastPosition *models.PositionSample
	distance     *float64
	lastError    string
	bumps        *bumpCollection
	sub          io.Closer
}

func NewMonitoringController(source geolocation.Source, gateway PersistenceGateway, det *detector.Detector, cfg ControllerConfig, logger *logrus.Logger) *MonitoringController {
	return &MonitoringController{
		source:   source,
		gateway:  gateway,
		detector: det,
		cfg:      cfg,
		logger:   logger,
		baseCtx:  context.Background(),
		bumps:    newBumpCollection(cfg.ProximityIndexThreshold),
	}
}

// Init загружает историю и подписывается на поток вставок. Ошибки хранилища не фатальны.
// ctx живет столько же, сколько контроллер: на нем держится подписка и фоновые записи.
func (c *MonitoringController) Init(ctx context.Context) error {
	log := c.logger.WithFields(logrus.Fields{
		"service": "monitoring",
		"method":  "Init",
	})

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	bumps := c.gateway.Load(ctx)

	c.mu.Lock()
	c.baseCtx = ctx
	c.bumps.Replace(bumps)
	c.recomputeNearestLocked()
	c.mu.Unlock()

	sub, err := c.gateway.Subscribe(ctx, func(b *models.SpeedBump) {
		c.Merge(ctx, b)
	})
	if err != nil {
		log.WithError(err).Warn("Realtime feed unavailable, continuing without it")
		return nil
	}
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	log.WithField("count", len(bumps)).Info("Monitoring controller initialised")
	return nil
}

// Start открывает наблюдение за позицией. Повторный вызов во время мониторинга ничего не делает.
func (c *MonitoringController) Start(ctx context.Context) (models.MonitoringState, error) {
	log := c.logger.WithFields(logrus.Fields{
		"service": "monitoring",
		"method":  "Start",
		"backend": c.source.Kind(),
	})

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.RLock()
	active := c.monitoring
	c.mu.RUnlock()
	if active {
		log.Debug("Monitoring already active")
		return c.State(), nil
	}

	if pr, ok := c.source.(geolocation.PermissionRequester); ok {
		if err := pr.RequestPermission(ctx); err != nil {
			log.WithError(err).Warn("Location permission not granted")
			c.setError(err)
			return c.State(), fmt.Errorf("service: could not start monitoring: %w", err)
		}
	}

	c.mu.Lock()
	c.session++
	gen := c.session
	c.monitoring = true
	c.lastError = ""
	c.currentSpeed = 0
	c.detector.Reset()
	c.mu.Unlock()

	opts := geolocation.WatchOptions{
		HighAccuracy: true,
		Timeout:      c.cfg.WebTimeout,
		MaxCachedAge: 0,
	}
	if c.source.Kind() == geolocation.KindNative {
		opts.Timeout = c.cfg.NativeTimeout
	}

	id, err := c.source.Watch(ctx, opts, func(sample *models.PositionSample, err error) {
		c.handlePosition(gen, sample, err)
	})
	if err != nil {
		c.mu.Lock()
		if c.session == gen {
			c.monitoring = false
			c.lastError = err.Error()
		}
		c.mu.Unlock()
		log.WithError(err).Error("Failed to open position watch")
		return c.State(), fmt.Errorf("service: could not start monitoring: %w", err)
	}

	c.mu.Lock()
	c.watchID = id
	c.mu.Unlock()

	log.WithField("watch_id", id).Info("Monitoring started")
	return c.State(), nil
}

// Stop закрывает наблюдение и сбрасывает скорость. Вне мониторинга ничего не делает.
func (c *MonitoringController) Stop(ctx context.Context) (models.MonitoringState, error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if err := c.stopLocked(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

func (c *MonitoringController) stopLocked(ctx context.Context) error {
	log := c.logger.WithFields(logrus.Fields{
		"service": "monitoring",
		"method":  "Stop",
	})

	c.mu.Lock()
	if !c.monitoring {
		c.mu.Unlock()
		return nil
	}
	id := c.watchID
	c.monitoring = false
	c.session++
	c.watchID = ""
	c.currentSpeed = 0
	c.lastPosition = nil
	c.distance = nil
	c.detector.Reset()
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	if err := c.source.ClearWatch(ctx, id); err != nil {
		log.WithError(err).WithField("watch_id", id).Error("Failed to clear position watch")
		return fmt.Errorf("service: could not stop monitoring: %w", err)
	}

	log.WithField("watch_id", id).Info("Monitoring stopped")
	return nil
}

// ClearHistory очищает коллекцию в памяти всегда, даже если удаление в хранилище не удалось
func (c *MonitoringController) ClearHistory(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	c.bumps.Clear()
	c.distance = nil
	c.mu.Unlock()

	if err := c.gateway.Clear(ctx); err != nil {
		c.logger.WithFields(logrus.Fields{
			"service": "monitoring",
			"method":  "ClearHistory",
		}).WithError(err).Warn("Remote history not cleared")
	}

	// Merge во время Clear мог попасть в кеш до его очистки
	c.mu.RLock()
	merged := c.bumps.Snapshot()
	c.mu.RUnlock()
	for _, b := range merged {
		c.gateway.Mirror(ctx, b)
	}
	return nil
}

// Merge добавляет событие из любого источника. Дубликаты по ID игнорируются.
func (c *MonitoringController) Merge(ctx context.Context, bump *models.SpeedBump) bool {
	if bump == nil {
		return false
	}

	c.mu.Lock()
	added := c.bumps.Prepend(bump)
	if added {
		c.recomputeNearestLocked()
	}
	c.mu.Unlock()

	if added {
		c.gateway.Mirror(ctx, bump)
	}
	return added
}

func (c *MonitoringController) State() models.MonitoringState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := models.MonitoringState{
		IsMonitoring: c.monitoring,
		CurrentSpeed: c.currentSpeed,
		LastPosition: c.lastPosition,
		BumpCount:    c.bumps.Len(),
		Backend:      string(c.source.Kind()),
		LastError:    c.lastError,
	}
	if c.distance != nil {
		d := *c.distance
		state.DistanceToNearest = &d
	}
	return state
}

func (c *MonitoringController) Bumps() []*models.SpeedBump {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bumps.Snapshot()
}

// Close останавливает мониторинг и отписывается от потока вставок
func (c *MonitoringController) Close() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if err := c.stopLocked(context.Background()); err != nil {
		c.logger.WithError(err).Warn("Failed to stop monitoring on close")
	}

	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (c *MonitoringController) handlePosition(gen uint64, sample *models.PositionSample, err error) {
	if err != nil {
		c.handlePositionError(gen, err)
		return
	}

	c.mu.Lock()
	if !c.monitoring || c.session != gen {
		c.mu.Unlock()
		return
	}
	speed, det := c.detector.Process(sample)
	c.currentSpeed = speed
	c.lastPosition = sample
	c.recomputeNearestLocked()
	ctx := c.baseCtx
	c.mu.Unlock()

	if det != nil {
		c.onDetection(ctx, det)
	}
}

func (c *MonitoringController) handlePositionError(gen uint64, err error) {
	log := c.logger.WithFields(logrus.Fields{
		"service": "monitoring",
		"method":  "handlePosition",
	})

	c.mu.Lock()
	if !c.monitoring || c.session != gen {
		c.mu.Unlock()
		return
	}
	c.lastError = err.Error()
	c.mu.Unlock()

	if !geolocation.IsFatal(err) {
		log.WithError(err).Warn("Transient position error")
		return
	}

	log.WithError(err).Error("Position source failed, stopping monitoring")
	// Источник может вызывать callback под своими блокировками
	go c.stopAfterFailure(gen, err)
}

func (c *MonitoringController) stopAfterFailure(gen uint64, cause error) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.RLock()
	current := c.session == gen && c.monitoring
	c.mu.RUnlock()
	if !current {
		return
	}

	if err := c.stopLocked(context.Background()); err != nil {
		c.logger.WithError(err).Warn("Failed to clear watch after source failure")
	}
	c.setError(cause)
}

func (c *MonitoringController) onDetection(ctx context.Context, det *models.Detection) {
	log := c.logger.WithFields(logrus.Fields{
		"service":   "monitoring",
		"method":    "onDetection",
		"latitude":  det.Latitude,
		"longitude": det.Longitude,
		"speed_kmh": det.SpeedKmh,
	})
	log.Info("Speed bump detected")

	if h, ok := c.source.(geolocation.Haptics); ok && c.cfg.HapticPulse > 0 {
		if err := h.Pulse(ctx, c.cfg.HapticPulse); err != nil {
			log.WithError(err).Debug("Haptic pulse failed")
		}
	}

	bump, err := c.gateway.Write(ctx, det)
	if err != nil {
		log.WithError(err).Warn("Detection not persisted")
		return
	}
	c.Merge(ctx, bump)
}

func (c *MonitoringController) setError(err error) {
	c.mu.Lock()
	c.lastError = err.Error()
	c.mu.Unlock()
}

func (c *MonitoringController) recomputeNearestLocked() {
	if c.lastPosition == nil {
		c.distance = nil
		return
	}
	d, ok := c.bumps.Nearest(geo.Point{Lat: c.lastPosition.Latitude, Lon: c.lastPosition.Longitude})
	if !ok {
		c.distance = nil
		return
	}
	c.distance = &d
}
