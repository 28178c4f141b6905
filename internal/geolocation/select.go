package geolocation

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Select picks the backend for the configured mode ("auto", "native" or "web").
// In auto mode the native backend wins whenever a connected MQTT client exists.
func Select(mode string, client mqtt.Client, native func(mqtt.Client) Source, web Source, logger *logrus.Logger) (Source, error) {
	nativeAvailable := client != nil && client.IsConnectionOpen()

	var src Source
	switch mode {
	case "native":
		if !nativeAvailable {
			return nil, fmt.Errorf("native backend requested: %w", ErrSourceUnavailable)
		}
		src = native(client)
	case "web":
		src = web
	case "auto", "":
		if nativeAvailable {
			src = native(client)
		} else {
			src = web
		}
	default:
		return nil, fmt.Errorf("unknown geolocation backend %q", mode)
	}

	logger.WithFields(logrus.Fields{
		"service": "geolocation",
		"mode":    mode,
		"backend": src.Kind(),
	}).Info("Geolocation backend selected")
	return src, nil
}
