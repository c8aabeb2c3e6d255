// Package session keeps admin logins and one-shot flash messages in a server-side session.
package session

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	CookieName = "docqr_session"

	keyAdmin = "admin_user"
	keyFlash = "flash"
	flashSep = "\x1f"
	levelSep = "\x1e"
)

// Config holds the cookie settings of NewStore.
type Config struct {
	TTL          time.Duration
	CookieSecure bool
	// Storage is nil for the in-memory store.
	Storage fiber.Storage
}

// NewStore builds the session store used by the admin area.
func NewStore(cfg Config) *session.Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return session.New(session.Config{
		Expiration:     cfg.TTL,
		Storage:        cfg.Storage,
		KeyLookup:      "cookie:" + CookieName,
		CookiePath:     "/",
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})
}
