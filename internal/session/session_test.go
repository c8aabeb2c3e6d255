package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FlashAndAdminRoundTrip(t *testing.T) {
	store := NewStore(Config{TTL: time.Hour})
	app := fiber.New()

	app.Get("/login", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		if err := SetAdmin(sess, "admin"); err != nil {
			return err
		}
		AddFlash(sess, "success", "Welcome")
		AddFlash(sess, "error", "Second")
		return sess.Save()
	})
	app.Get("/show", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		user, ok := Admin(sess)
		flashes := PopFlashes(sess)
		if err := sess.Save(); err != nil {
			return err
		}
		parts := []string{user}
		if !ok {
			parts = []string{"-"}
		}
		for _, f := range flashes {
			parts = append(parts, f.Level+":"+f.Message)
		}
		return c.SendString(strings.Join(parts, "|"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	show := func() string {
		req := httptest.NewRequest(http.MethodGet, "/show", nil)
		req.AddCookie(cookies[0])
		resp, err := app.Test(req)
		require.NoError(t, err)
		b, _ := io.ReadAll(resp.Body)
		return string(b)
	}

	assert.Equal(t, "admin|success:Welcome|error:Second", show())
	assert.Equal(t, "admin", show(), "flashes are shown once")
}
