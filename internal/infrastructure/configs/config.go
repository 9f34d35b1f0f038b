package configs

import (
	"fmt"
	"time"

	"github.com/hilthontt/studyroom/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Upstream    UpstreamConfig    `koanf:"upstream"`
	WS          WSConfig          `koanf:"ws"`
	Upload      UploadConfig      `koanf:"upload"`
	MessageLog  MessageLogConfig  `koanf:"message_log"`
	Classifier  ClassifierConfig  `koanf:"classifier"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
}

type HTTPConfig struct {
	Host         string        `koanf:"host"`
	Port         uint16        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// UpstreamConfig addresses the room server. The live connection is opened at
// {ws_base_url}/{room}/{clientId}; uploads and downloads go to http_base_url.
type UpstreamConfig struct {
	WSBaseURL   string `koanf:"ws_base_url"`
	HTTPBaseURL string `koanf:"http_base_url"`
}

type WSConfig struct {
	ConnectTimeout time.Duration   `koanf:"connect_timeout"`
	WriteTimeout   time.Duration   `koanf:"write_timeout"`
	ReadLimit      int64           `koanf:"read_limit"`
	Reconnect      ReconnectConfig `koanf:"reconnect"`
}

type ReconnectConfig struct {
	Enabled         bool          `koanf:"enabled"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	MaxElapsedTime  time.Duration `koanf:"max_elapsed_time"`
	MaxAttempts     uint          `koanf:"max_attempts"`
}

type UploadConfig struct {
	Timeout  time.Duration `koanf:"timeout"`
	MaxBytes int64         `koanf:"max_bytes"`
}

type MessageLogConfig struct {
	Capacity uint `koanf:"capacity"`
}

type ClassifierConfig struct {
	NotificationMode  string `koanf:"notification_mode"`
	RelayedFileFrames bool   `koanf:"relayed_file_frames"`
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int           `koanf:"requestsPerTimeFrame"`
	TimeFrame            time.Duration `koanf:"timeFrame"`
	Enabled              bool          `koanf:"enabled"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	Environment string `koanf:"environment"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upstream.WSBaseURL == "" {
		return fmt.Errorf("upstream.ws_base_url is required")
	}
	if c.Upstream.HTTPBaseURL == "" {
		return fmt.Errorf("upstream.http_base_url is required")
	}
	if c.WS.Reconnect.Enabled && c.WS.Reconnect.InitialInterval <= 0 {
		return fmt.Errorf("ws.reconnect.initial_interval must be positive when reconnect is enabled")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// Local control surface
	setDefault(k, "http.host", "127.0.0.1")
	setDefault(k, "http.port", 8090)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 90*time.Second)

	// Room server
	setDefault(k, "upstream.ws_base_url", "ws://localhost:8000/ws")
	setDefault(k, "upstream.http_base_url", "http://localhost:8000")

	// Live connection
	setDefault(k, "ws.connect_timeout", 10*time.Second)
	setDefault(k, "ws.write_timeout", 10*time.Second)
	setDefault(k, "ws.read_limit", 64*1024)
	setDefault(k, "ws.reconnect.enabled", false)
	setDefault(k, "ws.reconnect.initial_interval", 500*time.Millisecond)
	setDefault(k, "ws.reconnect.max_interval", 15*time.Second)
	setDefault(k, "ws.reconnect.max_elapsed_time", 2*time.Minute)
	setDefault(k, "ws.reconnect.max_attempts", 0)

	setDefault(k, "upload.timeout", 60*time.Second)
	setDefault(k, "upload.max_bytes", 10*1024*1024)

	setDefault(k, "message_log.capacity", 500)

	setDefault(k, "classifier.notification_mode", "substring")
	setDefault(k, "classifier.relayed_file_frames", false)

	setDefault(k, "rateLimiter.enabled", true)
	setDefault(k, "rateLimiter.requestsPerTimeFrame", 120)
	setDefault(k, "rateLimiter.timeFrame", time.Minute)

	setDefault(k, "logger.file_path", "./logs/")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	setDefault(k, "tracing.enabled", false)
	setDefault(k, "tracing.exporter", "otlp")
	setDefault(k, "tracing.endpoint", "http://localhost:4318/v1/traces")
	setDefault(k, "tracing.environment", "development")
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}

	if wsBase := env.GetString("UPSTREAM_WS_BASE_URL", ""); wsBase != "" {
		k.Set("upstream.ws_base_url", wsBase)
	}
	if httpBase := env.GetString("UPSTREAM_HTTP_BASE_URL", ""); httpBase != "" {
		k.Set("upstream.http_base_url", httpBase)
	}

	if timeout := env.GetDuration("WS_CONNECT_TIMEOUT", 0); timeout > 0 {
		k.Set("ws.connect_timeout", timeout)
	}
	if timeout := env.GetDuration("WS_WRITE_TIMEOUT", 0); timeout > 0 {
		k.Set("ws.write_timeout", timeout)
	}
	if enabled := env.GetString("WS_RECONNECT_ENABLED", ""); enabled != "" {
		k.Set("ws.reconnect.enabled", env.GetBool("WS_RECONNECT_ENABLED", false))
	}

	if timeout := env.GetDuration("UPLOAD_TIMEOUT", 0); timeout > 0 {
		k.Set("upload.timeout", timeout)
	}
	if maxBytes := env.GetInt("UPLOAD_MAX_BYTES", 0); maxBytes > 0 {
		k.Set("upload.max_bytes", int64(maxBytes))
	}

	if capacity := env.GetInt("MESSAGE_LOG_CAPACITY", 0); capacity > 0 {
		k.Set("message_log.capacity", uint(capacity))
	}

	if mode := env.GetString("CLASSIFIER_NOTIFICATION_MODE", ""); mode != "" {
		k.Set("classifier.notification_mode", mode)
	}

	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}

	if endpoint := env.GetString("TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
	if environment := env.GetString("ENVIRONMENT", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
