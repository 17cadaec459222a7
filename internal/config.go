package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=8080"`
	HealthPort           int           `env:"HEALTH_PORT,default=8081"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=25s"`
	PingTimeout          time.Duration `env:"PING_TIMEOUT,default=6s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	ReadLimit            int64         `env:"READ_LIMIT,default=65536"`
	InboundRate          float64       `env:"INBOUND_RATE,default=20"`
	InboundBurst         int           `env:"INBOUND_BURST,default=40"`
	TelemetryBufferSize  int           `env:"TELEMETRY_BUFFER_SIZE,default=1024"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MaxConnections       int           `env:"MAX_CONNECTIONS,default=10000"`
	QueueHighWater       int           `env:"QUEUE_HIGH_WATER_PERCENT,default=80"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	TokenSecret          string        `env:"TOKEN_SECRET"`
}

// Origins splits ALLOWED_ORIGINS, a comma separated list of host patterns.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c Config) Validate() error {
	if c.PingTimeout <= 0 || c.PingInterval <= 0 {
		return fmt.Errorf("PING_INTERVAL and PING_TIMEOUT must be positive, got %s and %s",
			c.PingInterval, c.PingTimeout)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	if c.TelemetryBufferSize <= 0 {
		return fmt.Errorf("TELEMETRY_BUFFER_SIZE must be positive, got %d", c.TelemetryBufferSize)
	}
	if c.QueueHighWater <= 0 || c.QueueHighWater > 100 {
		return fmt.Errorf("QUEUE_HIGH_WATER_PERCENT must be within 1..100, got %d", c.QueueHighWater)
	}
	if c.TokenSecret != "" && len(c.TokenSecret) < 16 {
		return fmt.Errorf("TOKEN_SECRET must be at least 16 bytes")
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}
