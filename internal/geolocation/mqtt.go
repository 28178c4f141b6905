package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const subackFailure = 0x80

type mqttWatch struct {
	id    WatchID
	opts  WatchOptions
	cb    Callback
	timer *time.Timer
}

// MQTTSource reads fixes from an on-board GNSS unit over MQTT.
//
// Topics, relative to <prefix>/<device>:
//
//	position  device -> service, one JSON fix per message
//	error     device -> service, {"code": 1|2|3, "message": "..."}
//	control   service -> device, watch options and stop requests
//	haptic    service -> device, vibration pulses
type MQTTSource struct {
	client mqtt.Client
	base   string
	qos    byte
	logger *logrus.Logger
	now    func() time.Time

	mu         sync.Mutex
	watches    map[WatchID]*mqttWatch
	subscribed bool
}

func NewMQTTSource(client mqtt.Client, topicPrefix, deviceID string, logger *logrus.Logger) *MQTTSource {
	return &MQTTSource{
		client:  client,
		base:    fmt.Sprintf("%s/%s", topicPrefix, deviceID),
		qos:     1,
		logger:  logger,
		now:     time.Now,
		watches: make(map[WatchID]*mqttWatch),
	}
}

func (s *MQTTSource) Kind() Kind {
	return KindNative
}

func (s *MQTTSource) positionTopic() string { return s.base + "/position" }
func (s *MQTTSource) errorTopic() string    { return s.base + "/error" }
func (s *MQTTSource) controlTopic() string  { return s.base + "/control" }
func (s *MQTTSource) hapticTopic() string   { return s.base + "/haptic" }

// RequestPermission probes the broker ACL for the position topic.
// A refused subscription means the device owner has not granted access.
func (s *MQTTSource) RequestPermission(ctx context.Context) error {
	if !s.client.IsConnectionOpen() {
		return fmt.Errorf("mqtt broker not connected: %w", ErrSourceUnavailable)
	}

	topic := s.positionTopic()
	token := s.client.Subscribe(topic, s.qos, func(mqtt.Client, mqtt.Message) {})
	if err := waitToken(ctx, token); err != nil {
		return fmt.Errorf("permission probe on %s: %w: %v", topic, ErrSourceUnavailable, err)
	}
	if st, ok := token.(*mqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subackFailure {
			return fmt.Errorf("broker refused %s: %w", topic, ErrPermissionDenied)
		}
	}
	return waitToken(ctx, s.client.Unsubscribe(topic))
}

func (s *MQTTSource) Watch(ctx context.Context, opts WatchOptions, cb Callback) (WatchID, error) {
	if !s.client.IsConnectionOpen() {
		return "", fmt.Errorf("mqtt broker not connected: %w", ErrSourceUnavailable)
	}

	if err := s.publishControl(ctx, controlMessage{
		Action:       "watch",
		HighAccuracy: opts.HighAccuracy,
		TimeoutMs:    opts.Timeout.Milliseconds(),
		MaximumAgeMs: opts.MaxCachedAge.Milliseconds(),
	}); err != nil {
		return "", err
	}

	s.mu.Lock()
	needSubscribe := !s.subscribed
	w := &mqttWatch{id: WatchID(uuid.NewString()), opts: opts, cb: cb}
	s.watches[w.id] = w
	s.subscribed = true
	s.mu.Unlock()

	if needSubscribe {
		token := s.client.SubscribeMultiple(map[string]byte{
			s.positionTopic(): s.qos,
			s.errorTopic():    s.qos,
		}, s.handleMessage)
		if err := waitToken(ctx, token); err != nil {
			s.mu.Lock()
			delete(s.watches, w.id)
			s.subscribed = false
			s.mu.Unlock()
			return "", fmt.Errorf("subscribe %s: %w: %v", s.base, ErrSourceUnavailable, err)
		}
	}

	s.mu.Lock()
	if _, ok := s.watches[w.id]; ok && opts.Timeout > 0 {
		id := w.id
		w.timer = time.AfterFunc(opts.Timeout, func() { s.expire(id) })
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"service":  "geolocation",
		"backend":  KindNative,
		"watch_id": w.id,
		"topic":    s.positionTopic(),
	}).Info("Native watch registered")
	return w.id, nil
}

func (s *MQTTSource) ClearWatch(ctx context.Context, id WatchID) error {
	s.mu.Lock()
	w, ok := s.watches[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	delete(s.watches, id)
	last := len(s.watches) == 0 && s.subscribed
	if last {
		s.subscribed = false
	}
	s.mu.Unlock()

	if !last {
		return nil
	}
	if err := waitToken(ctx, s.client.Unsubscribe(s.positionTopic(), s.errorTopic())); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", s.base, err)
	}
	return s.publishControl(ctx, controlMessage{Action: "clear"})
}

// Pulse asks the device to vibrate for d.
func (s *MQTTSource) Pulse(ctx context.Context, d time.Duration) error {
	payload, err := json.Marshal(hapticMessage{DurationMs: d.Milliseconds()})
	if err != nil {
		return fmt.Errorf("failed to marshal haptic pulse: %w", err)
	}
	return waitToken(ctx, s.client.Publish(s.hapticTopic(), 0, false, payload))
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "geolocation",
		"backend": KindNative,
		"topic":   msg.Topic(),
	})

	if msg.Topic() == s.errorTopic() {
		perr, err := parseDeviceError(msg.Payload())
		if err != nil {
			log.WithError(err).Warn("Invalid device error message")
			return
		}
		// A native timeout never ends the session.
		if perr.Code == CodeTimeout {
			perr.Fatal = false
		}
		s.dispatchError(perr)
		return
	}

	sample, err := parsePosition(msg.Payload())
	if err != nil {
		log.WithError(err).Warn("Invalid position message")
		return
	}

	s.mu.Lock()
	callbacks := make([]Callback, 0, len(s.watches))
	for _, w := range s.watches {
		if !s.acceptFix(w.opts, msg.Retained(), sample) {
			continue
		}
		if w.timer != nil {
			w.timer.Reset(w.opts.Timeout)
		}
		callbacks = append(callbacks, w.cb)
	}
	s.mu.Unlock()

	if len(callbacks) == 0 {
		log.Debug("Cached fix rejected")
	}
	for _, cb := range callbacks {
		cb(sample, nil)
	}
}

// acceptFix treats retained messages as cached fixes.
func (s *MQTTSource) acceptFix(opts WatchOptions, retained bool, sample *models.PositionSample) bool {
	if opts.MaxCachedAge == 0 {
		return !retained
	}
	return s.now().Sub(sample.Time()) <= opts.MaxCachedAge
}

func (s *MQTTSource) dispatchError(perr *PositionError) {
	s.mu.Lock()
	callbacks := make([]Callback, 0, len(s.watches))
	for _, w := range s.watches {
		callbacks = append(callbacks, w.cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(nil, perr)
	}
}

func (s *MQTTSource) expire(id WatchID) {
	s.mu.Lock()
	w, ok := s.watches[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	w.timer.Reset(w.opts.Timeout)
	cb := w.cb
	timeout := w.opts.Timeout
	s.mu.Unlock()

	perr := NewPositionError(CodeTimeout, "no fix within "+timeout.String())
	cb(nil, perr)
}

func (s *MQTTSource) publishControl(ctx context.Context, msg controlMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal control message: %w", err)
	}
	if err := waitToken(ctx, s.client.Publish(s.controlTopic(), s.qos, false, payload)); err != nil {
		return fmt.Errorf("publish %s: %w: %v", s.controlTopic(), ErrSourceUnavailable, err)
	}
	return nil
}

type controlMessage struct {
	Action       string `json:"action"`
	HighAccuracy bool   `json:"enable_high_accuracy,omitempty"`
	TimeoutMs    int64  `json:"timeout,omitempty"`
	MaximumAgeMs int64  `json:"maximum_age,omitempty"`
}

type hapticMessage struct {
	DurationMs int64 `json:"duration_ms"`
}

// parsePosition accepts both a flat fix and the platform shape with the
// coordinates nested under "coords".
func parsePosition(payload []byte) (*models.PositionSample, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	root := gjson.ParseBytes(payload)
	coords := root.Get("coords")
	if !coords.Exists() {
		coords = root
	}

	lat, lon := coords.Get("latitude"), coords.Get("longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return nil, fmt.Errorf("latitude and longitude are required")
	}
	sample := &models.PositionSample{
		Latitude:  lat.Float(),
		Longitude: lon.Float(),
		Timestamp: root.Get("timestamp").Int(),
		Speed:     optionalNumber(coords.Get("speed")),
		Accuracy:  optionalNumber(coords.Get("accuracy")),
	}

	if sample.Latitude < -90 || sample.Latitude > 90 {
		return nil, fmt.Errorf("latitude: must be between -90 and 90")
	}
	if sample.Longitude < -180 || sample.Longitude > 180 {
		return nil, fmt.Errorf("longitude: must be between -180 and 180")
	}
	if sample.Timestamp <= 0 {
		return nil, fmt.Errorf("timestamp: must be positive")
	}
	return sample, nil
}

func parseDeviceError(payload []byte) (*PositionError, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	code := gjson.GetBytes(payload, "code")
	if code.Type != gjson.Number {
		return nil, fmt.Errorf("code is required")
	}
	return NewPositionError(ErrorCode(code.Int()), gjson.GetBytes(payload, "message").String()), nil
}

func optionalNumber(r gjson.Result) *float64 {
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Float()
	return &v
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
