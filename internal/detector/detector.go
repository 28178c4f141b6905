// Package detector finds abrupt decelerations in a stream of position samples.
package detector

import (
	"github.com/shenikar/speedbump_logger/internal/models"
	"github.com/sirupsen/logrus"
)

// MpsToKmh converts meters per second to kilometers per hour.
const MpsToKmh = 3.6

// Config holds the trigger thresholds. Window is the number of preceding
// samples averaged into the comparison basis; 1 means the previous sample only.
type Config struct {
	MinPreviousKmh float64
	MinDropKmh     float64
	NearStopKmh    float64
	Window         int
}

// DefaultConfig returns the thresholds used in the field.
func DefaultConfig() Config {
	return Config{
		MinPreviousKmh: 15,
		MinDropKmh:     10,
		NearStopKmh:    8,
		Window:         1,
	}
}

// IsLargeDrop reports a drop of more than MinDropKmh from a basis above MinPreviousKmh.
func IsLargeDrop(basisKmh, speedKmh float64, cfg Config) bool {
	return basisKmh > cfg.MinPreviousKmh && basisKmh-speedKmh > cfg.MinDropKmh
}

// IsNearStop reports a fall below NearStopKmh from a basis above MinPreviousKmh.
func IsNearStop(basisKmh, speedKmh float64, cfg Config) bool {
	return basisKmh > cfg.MinPreviousKmh && speedKmh < cfg.NearStopKmh
}

// Detector is not safe for concurrent use; the caller serialises samples.
type Detector struct {
	cfg     Config
	history []float64
	logger  *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *Detector {
	if cfg.Window < 1 {
		cfg.Window = 1
	}
	return &Detector{
		cfg:     cfg,
		history: make([]float64, 0, cfg.Window),
		logger:  logger,
	}
}

// Reset forgets all previous speeds, equivalent to a previous speed of 0.
func (d *Detector) Reset() {
	d.history = d.history[:0]
}

// Basis returns the speed the next sample is compared against.
func (d *Detector) Basis() float64 {
	if len(d.history) == 0 {
		return 0
	}
	var sum float64
	for _, s := range d.history {
		sum += s
	}
	return sum / float64(len(d.history))
}

// Process consumes one sample and returns its speed in km/h and, when the
// sample triggers, the detection to persist.
func (d *Detector) Process(sample *models.PositionSample) (float64, *models.Detection) {
	speedKmh := sample.SpeedOrZero() * MpsToKmh
	basis := d.Basis()

	largeDrop := IsLargeDrop(basis, speedKmh, d.cfg)
	nearStop := IsNearStop(basis, speedKmh, d.cfg)

	d.logger.WithFields(logrus.Fields{
		"service":    "detector",
		"speed_kmh":  speedKmh,
		"basis_kmh":  basis,
		"drop_kmh":   basis - speedKmh,
		"large_drop": largeDrop,
		"near_stop":  nearStop,
		"accuracy":   sample.AccuracyOrZero(),
	}).Debug("Speed check")

	d.push(speedKmh)

	if !largeDrop && !nearStop {
		return speedKmh, nil
	}

	return speedKmh, &models.Detection{
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		SpeedKmh:   speedKmh,
		DetectedAt: sample.Time(),
		Accuracy:   sample.AccuracyOrZero(),
	}
}

func (d *Detector) push(speedKmh float64) {
	if len(d.history) == d.cfg.Window {
		copy(d.history, d.history[1:])
		d.history = d.history[:len(d.history)-1]
	}
	d.history = append(d.history, speedKmh)
}
