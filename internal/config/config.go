package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - конфигурация сервиса логирования лежачих полицейских
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	CacheKey  string `env:"CACHE_KEY" envDefault:"speed-bumps"`

	// Realtime Config
	RealtimeChannel string `env:"REALTIME_CHANNEL" envDefault:"speed_bumps_inserts"`

	// MQTT / geolocation Config
	MQTTBroker       string        `env:"MQTT_BROKER"`
	MQTTClientID     string        `env:"MQTT_CLIENT_ID" envDefault:"speedbump-logger"`
	MQTTTopicPrefix  string        `env:"MQTT_TOPIC_PREFIX" envDefault:"vehicle"`
	DeviceID         string        `env:"DEVICE_ID" envDefault:"default"`
	GeoBackend       string        `env:"GEO_BACKEND" envDefault:"auto"`
	GeoNativeTimeout time.Duration `env:"GEO_NATIVE_TIMEOUT" envDefault:"5s"`
	GeoWebTimeout    time.Duration `env:"GEO_WEB_TIMEOUT" envDefault:"10s"`
	HapticPulse      time.Duration `env:"HAPTIC_PULSE" envDefault:"200ms"`

	// Detector Config
	DetectorMinPreviousKmh float64 `env:"DETECTOR_MIN_PREVIOUS_KMH" envDefault:"15"`
	DetectorMinDropKmh     float64 `env:"DETECTOR_MIN_DROP_KMH" envDefault:"10"`
	DetectorNearStopKmh    float64 `env:"DETECTOR_NEAR_STOP_KMH" envDefault:"8"`
	DetectorWindow         int     `env:"DETECTOR_WINDOW" envDefault:"1"`

	// Persistence Config
	LoadLimit               int           `env:"LOAD_LIMIT" envDefault:"100"`
	ClearWindow             time.Duration `env:"CLEAR_WINDOW" envDefault:"720h"`
	StoreTimeout            time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	ProximityIndexThreshold int           `env:"PROXIMITY_INDEX_THRESHOLD" envDefault:"512"`

	// Outbox Config
	OutboxEnabled     bool          `env:"OUTBOX_ENABLED" envDefault:"false"`
	OutboxKey         string        `env:"OUTBOX_KEY" envDefault:"speed-bumps:outbox"`
	OutboxMaxSize     int           `env:"OUTBOX_MAX_SIZE" envDefault:"500"`
	OutboxMaxRetries  int           `env:"OUTBOX_MAX_RETRIES" envDefault:"5"`
	OutboxBaseDelay   time.Duration `env:"OUTBOX_BASE_DELAY" envDefault:"1s"`
	OutboxMaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"3"`

	// Передается клиенту карты как есть, ядро его не использует
	MapAccessToken string `env:"MAP_ACCESS_TOKEN"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		RedisDB:   getEnvAsInt("REDIS_DB", 0),
		CacheKey:  getEnv("CACHE_KEY", "speed-bumps"),

		RealtimeChannel: getEnv("REALTIME_CHANNEL", "speed_bumps_inserts"),

		MQTTBroker:       os.Getenv("MQTT_BROKER"),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "speedbump-logger"),
		MQTTTopicPrefix:  getEnv("MQTT_TOPIC_PREFIX", "vehicle"),
		DeviceID:         getEnv("DEVICE_ID", "default"),
		GeoBackend:       strings.ToLower(getEnv("GEO_BACKEND", "auto")),
		GeoNativeTimeout: getEnvAsDuration("GEO_NATIVE_TIMEOUT", 5*time.Second),
		GeoWebTimeout:    getEnvAsDuration("GEO_WEB_TIMEOUT", 10*time.Second),
		HapticPulse:      getEnvAsDuration("HAPTIC_PULSE", 200*time.Millisecond),

		DetectorMinPreviousKmh: getEnvAsFloat("DETECTOR_MIN_PREVIOUS_KMH", 15),
		DetectorMinDropKmh:     getEnvAsFloat("DETECTOR_MIN_DROP_KMH", 10),
		DetectorNearStopKmh:    getEnvAsFloat("DETECTOR_NEAR_STOP_KMH", 8),
		DetectorWindow:         getEnvAsInt("DETECTOR_WINDOW", 1),

		LoadLimit:               getEnvAsInt("LOAD_LIMIT", 100),
		ClearWindow:             getEnvAsDuration("CLEAR_WINDOW", 30*24*time.Hour),
		StoreTimeout:            getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		ProximityIndexThreshold: getEnvAsInt("PROXIMITY_INDEX_THRESHOLD", 512),

		OutboxEnabled:     getEnvAsBool("OUTBOX_ENABLED", false),
		OutboxKey:         getEnv("OUTBOX_KEY", "speed-bumps:outbox"),
		OutboxMaxSize:     getEnvAsInt("OUTBOX_MAX_SIZE", 500),
		OutboxMaxRetries:  getEnvAsInt("OUTBOX_MAX_RETRIES", 5),
		OutboxBaseDelay:   getEnvAsDuration("OUTBOX_BASE_DELAY", time.Second),
		OutboxMaxAttempts: getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 3),

		MapAccessToken: os.Getenv("MAP_ACCESS_TOKEN"),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения, без которых сервис не может работать
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	switch c.GeoBackend {
	case "auto", "native", "web":
	default:
		return fmt.Errorf("GEO_BACKEND must be one of auto, native, web; got %q", c.GeoBackend)
	}
	if c.GeoBackend == "native" && c.MQTTBroker == "" {
		return fmt.Errorf("GEO_BACKEND=native requires MQTT_BROKER")
	}
	if c.DetectorWindow < 1 {
		return fmt.Errorf("DETECTOR_WINDOW must be >= 1")
	}
	if c.LoadLimit < 1 {
		return fmt.Errorf("LOAD_LIMIT must be >= 1")
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
