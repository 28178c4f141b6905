package geolocation

import (
	"bytes"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	web := NewWebSource(logger)
	native := func(c mqtt.Client) Source { return NewMQTTSource(c, "vehicle", "car-1", logger) }

	src, err := Select("auto", nil, native, web, logger)
	require.NoError(t, err)
	assert.Equal(t, KindWeb, src.Kind())

	src, err = Select("auto", &fakeClient{open: true}, native, web, logger)
	require.NoError(t, err)
	assert.Equal(t, KindNative, src.Kind())

	_, err = Select("native", &fakeClient{open: false}, native, web, logger)
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	src, err = Select("web", &fakeClient{open: true}, native, web, logger)
	require.NoError(t, err)
	assert.Equal(t, KindWeb, src.Kind())

	_, err = Select("bluetooth", nil, native, web, logger)
	assert.Error(t, err)
}
