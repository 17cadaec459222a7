package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// HUB_URL is the websocket endpoint of a running hub, e.g. ws://localhost:8080/ws.
	// The suite is skipped when it is empty.
	HubURL     string `envconfig:"HUB_URL"`
	HealthAddr string `envconfig:"HEALTH_ADDR" default:"localhost:8081"`
	// TOKEN_SECRET must match the hub when it verifies identities
	TokenSecret string `envconfig:"TOKEN_SECRET"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
