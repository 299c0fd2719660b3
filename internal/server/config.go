package server

import (
	"crypto/tls"
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
)

const (
	defaultAddress     = "0.0.0.0:5000"
	defaultTimeout     = 30 * time.Second
	defaultSessionTTL  = time.Hour
	defaultFrontendURL = "http://localhost:3000"
)

// Config represents report server configuration.
type Config struct {
	Address string        `yaml:"address" env:"SERVER_ADDRESS"`
	Timeout time.Duration `yaml:"timeout" env:"SERVER_TIMEOUT"`

	// Secret for signing session tokens handed out by the OAuth callback.
	JWTSecret  string        `yaml:"jwt_secret" env:"SERVER_JWT_SECRET"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SERVER_SESSION_TTL"`

	// GitHub OAuth application credentials. Login endpoints are disabled
	// when the client ID is empty.
	OAuthClientID     string `yaml:"oauth_client_id" env:"GITHUB_CLIENT_ID"`
	OAuthClientSecret string `yaml:"oauth_client_secret" env:"GITHUB_CLIENT_SECRET"`
	OAuthRedirectURL  string `yaml:"oauth_redirect_url" env:"GITHUB_REDIRECT_URI"`

	// Where the callback sends the browser after a successful login.
	FrontendURL string `yaml:"frontend_url" env:"SERVER_FRONTEND_URL"`

	CertFilePath string `yaml:"cert_file_path" env:"CERT_FILE_PATH"`
	KeyFilePath  string `yaml:"key_file_path" env:"KEY_FILE_PATH"`
	EnableHTTPS  bool   `yaml:"enable_https" env:"SERVER_ENABLE_HTTPS"`

	Certificate tls.Certificate `yaml:"-"`
}

func (cfg *Config) PrepareAndValidate() error {
	cfg.Address = lang.Check(cfg.Address, defaultAddress)
	cfg.Timeout = lang.Check(cfg.Timeout, defaultTimeout)
	cfg.SessionTTL = lang.Check(cfg.SessionTTL, defaultSessionTTL)
	cfg.FrontendURL = lang.Check(cfg.FrontendURL, defaultFrontendURL)

	if cfg.JWTSecret == "" {
		return erro.New("jwt_secret is required")
	}

	if cfg.EnableHTTPS {
		if cfg.CertFilePath == "" || cfg.KeyFilePath == "" {
			return erro.New("cert_file_path and key_file_path must be set when enable_https is true")
		}

		cert, err := tls.LoadX509KeyPair(cfg.CertFilePath, cfg.KeyFilePath)
		if err != nil {
			return erro.Wrap(err, "failed to load certificate and key pair")
		}

		cfg.Certificate = cert
	}

	return nil
}
