package session

import (
	"strings"

	"github.com/gofiber/fiber/v2/middleware/session"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string // "success" or "error"
	Message string
}

// Values are stored as plain strings: gob only knows basic types without registration.

// AddFlash queues a message on sess. The caller saves the session.
func AddFlash(sess *session.Session, level, message string) {
	entry := level + levelSep + message
	if prev, ok := sess.Get(keyFlash).(string); ok && prev != "" {
		entry = prev + flashSep + entry
	}
	sess.Set(keyFlash, entry)
}

// PopFlashes returns and clears queued messages. The caller saves the session.
func PopFlashes(sess *session.Session) []Flash {
	raw, ok := sess.Get(keyFlash).(string)
	if !ok || raw == "" {
		return nil
	}
	sess.Delete(keyFlash)

	var out []Flash
	for _, entry := range strings.Split(raw, flashSep) {
		level, msg, found := strings.Cut(entry, levelSep)
		if !found {
			level, msg = "info", entry
		}
		out = append(out, Flash{Level: level, Message: msg})
	}
	return out
}

// SetAdmin marks sess as logged in. The session ID is regenerated first.
func SetAdmin(sess *session.Session, username string) error {
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(keyAdmin, username)
	return nil
}

// Admin returns the logged-in admin, if any.
func Admin(sess *session.Session) (string, bool) {
	u, ok := sess.Get(keyAdmin).(string)
	return u, ok && u != ""
}

// ClearAdmin logs the session out while keeping it alive for a flash message.
func ClearAdmin(sess *session.Session) {
	sess.Delete(keyAdmin)
}
