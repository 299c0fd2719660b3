package client

import (
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

const (
	defaultBaseURL = "http://localhost:5000"
	defaultTimeout = 2 * time.Minute
)

// Config represents backend client configuration.
type Config struct {
	BaseURL string        `yaml:"base_url" env:"CLIENT_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"CLIENT_TIMEOUT"`
}

func (cfg *Config) PrepareAndValidate() error {
	cfg.BaseURL = lang.Check(cfg.BaseURL, defaultBaseURL)
	cfg.Timeout = lang.Check(cfg.Timeout, defaultTimeout)

	if cfg.Timeout < 0 {
		return errm.New("timeout must not be negative")
	}
	return nil
}
