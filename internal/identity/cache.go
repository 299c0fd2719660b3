// Package identity holds the session identity: the opaque access token
// obtained from the login redirect and the username cached after a
// successful status check. It is the single holder of both values.
package identity

import (
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "codereport"
	tokenKey       = "auth_token"
	usernameKey    = "username"
)

// Cache stores the token and username for the current session. It prefers
// the OS keyring so the identity survives between invocations; when the
// keyring is unavailable it degrades to process-lifetime memory.
type Cache struct {
	useKeyring bool
	mem        *abstract.SafeMap[string, string]
	log        logze.Logger
}

// New creates a cache, probing keyring availability the same way it will be
// used later.
func New() *Cache {
	c := &Cache{
		mem: abstract.NewSafeMap[string, string](),
		log: logze.With("module", "identity"),
	}
	c.useKeyring = keyringAvailable()
	if !c.useKeyring {
		c.log.Warn("system keyring unavailable, identity will not survive this session")
	}
	return c
}

// NewMemory creates a cache that never touches the OS keyring.
func NewMemory() *Cache {
	return &Cache{
		mem: abstract.NewSafeMap[string, string](),
		log: logze.With("module", "identity"),
	}
}

// Token returns the cached access token, or ok=false when none is stored.
func (c *Cache) Token() (string, bool) {
	return c.get(tokenKey)
}

// SetToken stores the access token for the session.
func (c *Cache) SetToken(token string) error {
	return c.set(tokenKey, token)
}

// ClearToken removes the token and the username derived from it.
func (c *Cache) ClearToken() error {
	if err := c.delete(tokenKey); err != nil {
		return errm.Wrap(err, "delete token")
	}
	return c.delete(usernameKey)
}

// Username returns the cached username, or ok=false when none is stored.
func (c *Cache) Username() (string, bool) {
	return c.get(usernameKey)
}

// SetUsername caches the username established by a status check.
func (c *Cache) SetUsername(username string) error {
	return c.set(usernameKey, username)
}

func (c *Cache) get(key string) (string, bool) {
	if c.useKeyring {
		value, err := keyring.Get(keyringService, key)
		if err != nil {
			return "", false
		}
		return value, value != ""
	}
	value, ok := c.mem.Lookup(key)
	return value, ok && value != ""
}

func (c *Cache) set(key, value string) error {
	if c.useKeyring {
		if err := keyring.Set(keyringService, key, value); err != nil {
			return errm.Wrap(err, "keyring set")
		}
		return nil
	}
	c.mem.Set(key, value)
	return nil
}

func (c *Cache) delete(key string) error {
	if c.useKeyring {
		err := keyring.Delete(keyringService, key)
		if err != nil && err != keyring.ErrNotFound {
			return errm.Wrap(err, "keyring delete")
		}
		return nil
	}
	c.mem.Delete(key)
	return nil
}

func keyringAvailable() bool {
	const probe = "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, probe)
	return true
}
