package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	docsession "docqr/internal/session"
)

// AdminLocalKey holds the logged-in admin's username for downstream handlers.
const AdminLocalKey = "admin_user"

// RequireAdmin redirects to the login form unless the session carries an admin.
func RequireAdmin(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		user, ok := docsession.Admin(sess)
		if !ok {
			return c.Redirect("/admin", fiber.StatusFound)
		}
		c.Locals(AdminLocalKey, user)
		return c.Next()
	}
}

// NoCache marks HTML responses as never cacheable, so a replaced PDF shows up immediately.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store, no-cache, must-revalidate, max-age=0")
		c.Set(fiber.HeaderPragma, "no-cache")
		c.Set(fiber.HeaderExpires, "0")
		return c.Next()
	}
}
