package app

import (
	"os"

	"codereport/internal/client"
	"codereport/internal/elaborate"
	"codereport/internal/gitsource"
	"codereport/internal/render"
	"codereport/internal/server"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/errm"
)

// Config is the aggregate application configuration. Component configs
// validate themselves when their component is created, so a client-only run
// does not require server credentials and vice versa.
type Config struct {
	Client client.Config    `yaml:"client"`
	Export render.Config    `yaml:"export"`
	Server server.Config    `yaml:"server"`
	Source gitsource.Config `yaml:"source"`
	Agent  elaborate.Config `yaml:"agent"`
}

// LoadConfig reads the YAML config at path, with environment variables
// taking precedence. An empty path loads from the environment alone.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, errm.Wrap(err, "read env")
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return cfg, errm.Wrap(err, "config file not found")
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, errm.Wrap(err, "read config")
	}
	return cfg, nil
}
