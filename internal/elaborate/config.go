package elaborate

import (
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = float32(0.2)
	defaultMaxTokens   = 1000
)

// Config represents elaboration agent configuration.
type Config struct {
	APIKey      string  `yaml:"api_key" env:"AGENT_API_KEY"`
	Model       string  `yaml:"model" env:"AGENT_MODEL"`
	ProxyURL    string  `yaml:"proxy_url" env:"AGENT_PROXY_URL"`
	Temperature float32 `yaml:"temperature" env:"AGENT_TEMPERATURE"`
	MaxTokens   int     `yaml:"max_tokens" env:"AGENT_MAX_TOKENS"`
	IsTest      bool    `yaml:"is_test" env:"AGENT_IS_TEST"`
}

func (cfg *Config) PrepareAndValidate() error {
	if cfg.APIKey == "" {
		return erro.New("agent API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)
	cfg.Temperature = lang.Check(cfg.Temperature, defaultTemperature)
	cfg.MaxTokens = lang.Check(cfg.MaxTokens, defaultMaxTokens)

	return nil
}
