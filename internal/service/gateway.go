package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=gateway.go -destination=mocks/mock_gateway.go -package=mocks

// ErrStoreUnavailable оборачивает любую ошибку авторитетного хранилища
var ErrStoreUnavailable = errors.New("authoritative store unavailable")

// BumpStore - авторитетное хранилище событий
type BumpStore interface {
	ListRecent(ctx context.Context, limit int) ([]*models.SpeedBump, error)
	Create(ctx context.Context, d *models.Detection) (*models.SpeedBump, error)
	DeleteDetectedSince(ctx context.Context, since time.Time) (int64, error)
}

// BumpCache - локальный снимок коллекции под одним ключом
type BumpCache interface {
	Snapshot(ctx context.Context) ([]*models.SpeedBump, error)
	Replace(ctx context.Context, bumps []*models.SpeedBump) error
	Merge(ctx context.Context, bump *models.SpeedBump) error
	Clear(ctx context.Context) error
}

// ChangeFeed - поток вставок из авторитетного хранилища
type ChangeFeed interface {
	Subscribe(ctx context.Context, handler func(*models.SpeedBump)) (io.Closer, error)
}

// Outbox хранит детекции, которые не удалось записать
type Outbox interface {
	Enqueue(ctx context.Context, d *models.Detection) error
}

// PersistenceGateway - двухуровневое хранилище: удаленное авторитетное и локальный кеш
type PersistenceGateway interface {
	Load(ctx context.Context) []*models.SpeedBump
	Write(ctx context.Context, d *models.Detection) (*models.SpeedBump, error)
	Mirror(ctx context.Context, bump *models.SpeedBump)
	Subscribe(ctx context.Context, handler func(*models.SpeedBump)) (io.Closer, error)
	Clear(ctx context.Context) error
}

type GatewayConfig struct {
	LoadLimit    int
	ClearWindow  time.Duration
	StoreTimeout time.Duration
}

type persistenceGateway struct {
	store  BumpStore
	cache  BumpCache
	feed   ChangeFeed
	outbox Outbox
	cfg    GatewayConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewPersistenceGateway собирает шлюз. outbox может быть nil: тогда неудачная запись теряется.
func NewPersistenceGateway(store BumpStore, cache BumpCache, feed ChangeFeed, outbox Outbox, cfg GatewayConfig, logger *logrus.Logger) PersistenceGateway {
	if cfg.LoadLimit <= 0 {
		cfg.LoadLimit = 100
	}
	if cfg.ClearWindow <= 0 {
		cfg.ClearWindow = 30 * 24 * time.Hour
	}
	return &persistenceGateway{
		store:  store,
		cache:  cache,
		feed:   feed,
		outbox: outbox,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (g *persistenceGateway) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.StoreTimeout)
}

// Load читает последние события из хранилища, при ошибке отдает локальный снимок
func (g *persistenceGateway) Load(ctx context.Context) []*models.SpeedBump {
	log := g.logger.WithFields(logrus.Fields{
		"service": "gateway",
		"method":  "Load",
		"limit":   g.cfg.LoadLimit,
	})

	sctx, cancel := g.storeContext(ctx)
	bumps, err := g.store.ListRecent(sctx, g.cfg.LoadLimit)
	cancel()
	if err == nil {
		if bumps == nil {
			bumps = []*models.SpeedBump{}
		}
		if cerr := g.cache.Replace(ctx, bumps); cerr != nil {
			log.WithError(cerr).Warn("Failed to mirror loaded speed bumps to cache")
		}
		log.WithField("count", len(bumps)).Info("Speed bumps loaded from store")
		return bumps
	}

	log.WithError(err).Warn("Store unavailable, falling back to local cache")
	cached, cerr := g.cache.Snapshot(ctx)
	if cerr != nil {
		log.WithError(cerr).Error("Failed to read local cache")
		return []*models.SpeedBump{}
	}
	if cached == nil {
		log.Info("No cached snapshot, starting empty")
		return []*models.SpeedBump{}
	}
	log.WithField("count", len(cached)).Info("Speed bumps loaded from cache")
	return cached
}

// Write вставляет событие в хранилище. Локальную коллекцию и кеш обновляет вызывающий через Mirror.
func (g *persistenceGateway) Write(ctx context.Context, d *models.Detection) (*models.SpeedBump, error) {
	log := g.logger.WithFields(logrus.Fields{
		"service":     "gateway",
		"method":      "Write",
		"latitude":    d.Latitude,
		"longitude":   d.Longitude,
		"speed_kmh":   d.SpeedKmh,
		"detected_at": d.DetectedAt,
	})

	sctx, cancel := g.storeContext(ctx)
	bump, err := g.store.Create(sctx, d)
	cancel()
	if err == nil {
		log.WithField("bump_id", bump.ID).Info("Speed bump saved")
		return bump, nil
	}

	if g.outbox != nil {
		qctx, qcancel := g.storeContext(ctx)
		qerr := g.outbox.Enqueue(qctx, d)
		qcancel()
		if qerr == nil {
			log.WithError(err).Warn("Store unavailable, detection queued in outbox")
			return nil, fmt.Errorf("%w: queued for retry: %v", ErrStoreUnavailable, err)
		}
		log.WithError(qerr).Error("Failed to queue detection in outbox")
	}

	log.WithError(err).Error("Failed to save speed bump, detection dropped")
	return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Mirror добавляет событие в локальный кеш
func (g *persistenceGateway) Mirror(ctx context.Context, bump *models.SpeedBump) {
	if err := g.cache.Merge(ctx, bump); err != nil {
		g.logger.WithFields(logrus.Fields{
			"service": "gateway",
			"method":  "Mirror",
			"bump_id": bump.ID,
		}).WithError(err).Warn("Failed to mirror speed bump to cache")
	}
}

func (g *persistenceGateway) Subscribe(ctx context.Context, handler func(*models.SpeedBump)) (io.Closer, error) {
	sub, err := g.feed.Subscribe(ctx, handler)
	if err != nil {
		return nil, fmt.Errorf("%w: realtime subscribe: %v", ErrStoreUnavailable, err)
	}
	return sub, nil
}

// Clear удаляет из хранилища только события за окно ClearWindow, а кеш очищает полностью.
// Более старая история в хранилище сохраняется.
func (g *persistenceGateway) Clear(ctx context.Context) error {
	since := g.now().Add(-g.cfg.ClearWindow)
	log := g.logger.WithFields(logrus.Fields{
		"service": "gateway",
		"method":  "Clear",
		"since":   since,
	})

	var remoteErr error
	sctx, cancel := g.storeContext(ctx)
	deleted, err := g.store.DeleteDetectedSince(sctx, since)
	cancel()
	if err != nil {
		log.WithError(err).Error("Failed to delete speed bumps from store")
		remoteErr = fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	} else {
		log.WithField("deleted", deleted).Info("Speed bumps deleted from store")
	}

	if err := g.cache.Clear(ctx); err != nil {
		log.WithError(err).Warn("Failed to clear local cache")
	}
	return remoteErr
}
