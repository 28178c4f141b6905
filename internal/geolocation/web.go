package geolocation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
)

type webWatch struct {
	id     WatchID
	opts   WatchOptions
	cb     Callback
	timer  *time.Timer
	gotFix bool
}

// WebSource receives fixes that a browser posts to the HTTP API.
// A timeout before the first fix is fatal; later timeouts are reported and
// the watch keeps running.
type WebSource struct {
	mu      sync.Mutex
	nextID  int
	watches map[WatchID]*webWatch
	now     func() time.Time
	logger  *logrus.Logger
}

func NewWebSource(logger *logrus.Logger) *WebSource {
	return &WebSource{
		watches: make(map[WatchID]*webWatch),
		now:     time.Now,
		logger:  logger,
	}
}

func (s *WebSource) Kind() Kind {
	return KindWeb
}

func (s *WebSource) Watch(_ context.Context, opts WatchOptions, cb Callback) (WatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	w := &webWatch{
		id:   WatchID(strconv.Itoa(s.nextID)),
		opts: opts,
		cb:   cb,
	}
	if opts.Timeout > 0 {
		id := w.id
		w.timer = time.AfterFunc(opts.Timeout, func() { s.expire(id) })
	}
	s.watches[w.id] = w

	s.logger.WithFields(logrus.Fields{
		"service":  "geolocation",
		"backend":  KindWeb,
		"watch_id": w.id,
	}).Info("Web watch registered")
	return w.id, nil
}

func (s *WebSource) ClearWatch(_ context.Context, id WatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watches[id]
	if !ok {
		return nil
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	delete(s.watches, id)
	return nil
}

// Active reports whether any watch is open.
func (s *WebSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches) > 0
}

// Deliver hands a browser fix to every open watch. Fixes older than a
// watch's MaxCachedAge are dropped for that watch.
func (s *WebSource) Deliver(sample *models.PositionSample) error {
	s.mu.Lock()
	if len(s.watches) == 0 {
		s.mu.Unlock()
		return ErrNoActiveWatch
	}

	callbacks := make([]Callback, 0, len(s.watches))
	for _, w := range s.watches {
		if w.opts.MaxCachedAge > 0 && s.now().Sub(sample.Time()) > w.opts.MaxCachedAge {
			continue
		}
		w.gotFix = true
		if w.timer != nil {
			w.timer.Reset(w.opts.Timeout)
		}
		callbacks = append(callbacks, w.cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(sample, nil)
	}
	return nil
}

// Fail reports a browser-side geolocation error to every open watch.
func (s *WebSource) Fail(code ErrorCode, message string) error {
	s.mu.Lock()
	if len(s.watches) == 0 {
		s.mu.Unlock()
		return ErrNoActiveWatch
	}
	type delivery struct {
		cb  Callback
		err *PositionError
	}
	deliveries := make([]delivery, 0, len(s.watches))
	for _, w := range s.watches {
		perr := NewPositionError(code, message)
		if code == CodeTimeout {
			perr.Fatal = !w.gotFix
		}
		deliveries = append(deliveries, delivery{cb: w.cb, err: perr})
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		d.cb(nil, d.err)
	}
	return nil
}

func (s *WebSource) expire(id WatchID) {
	s.mu.Lock()
	w, ok := s.watches[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	perr := NewPositionError(CodeTimeout, "no fix within "+w.opts.Timeout.String())
	perr.Fatal = !w.gotFix
	if !perr.Fatal {
		w.timer.Reset(w.opts.Timeout)
	}
	cb := w.cb
	s.mu.Unlock()

	cb(nil, perr)
}
