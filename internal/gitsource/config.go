package gitsource

import (
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

const defaultWorkers = 8

// Config represents GitHub source configuration.
type Config struct {
	Token   string `yaml:"token" env:"GITHUB_ACCESS_TOKEN"`
	BaseURL string `yaml:"base_url" env:"GITHUB_BASE_URL"`
	Workers int    `yaml:"workers" env:"GITHUB_WORKERS"`
}

func (cfg *Config) PrepareAndValidate() error {
	if cfg.Token == "" {
		return errm.New("GitHub token is required")
	}
	cfg.Workers = lang.Check(cfg.Workers, defaultWorkers)

	return nil
}
