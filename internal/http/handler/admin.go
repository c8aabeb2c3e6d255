package handler

import (
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sirupsen/logrus"

	"docqr/internal/http/middleware"
	"docqr/internal/qr"
	"docqr/internal/service"
	docsession "docqr/internal/session"
)

const dashboardPath = "/admin/dashboard"

// redirectWithFlash queues a flash message and redirects with 302.
func redirectWithFlash(c *fiber.Ctx, store *session.Store, level, message, to string) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	docsession.AddFlash(sess, level, message)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Redirect(to, fiber.StatusFound)
}

// render pops pending flashes into data and renders name.
func render(c *fiber.Ctx, store *session.Store, name string, data fiber.Map) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	data["Flashes"] = docsession.PopFlashes(sess)
	if err := sess.Save(); err != nil {
		return err
	}
	return c.Render(name, data)
}

// baseURL is the configured public origin, or the request's own.
func baseURL(c *fiber.Ctx, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	return c.BaseURL()
}

// LoginForm renders the login page, or skips to the dashboard when already logged in.
func LoginForm(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		if _, ok := docsession.Admin(sess); ok {
			return c.Redirect(dashboardPath, fiber.StatusFound)
		}
		return render(c, store, "admin_login", fiber.Map{})
	}
}

// Login checks the submitted credentials.
func Login(store *session.Store, auth service.AuthService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.Authenticate(c.UserContext(), c.FormValue("username"), c.FormValue("password"))
		if err != nil {
			if !errors.Is(err, service.ErrInvalidCredentials) {
				return err
			}
			log.WithFields(logrus.Fields{
				"event":      "admin_login_failed",
				"request_id": requestIDFromCtx(c),
				"ip":         c.IP(),
			}).Warn("invalid admin credentials")

			return c.Status(fiber.StatusUnauthorized).Render("admin_login", fiber.Map{
				"Flashes": []docsession.Flash{{Level: "error", Message: "Invalid username or password."}},
			})
		}

		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		if err := docsession.SetAdmin(sess, user); err != nil {
			return err
		}
		docsession.AddFlash(sess, "success", "Logged in.")
		if err := sess.Save(); err != nil {
			return err
		}
		return c.Redirect(dashboardPath, fiber.StatusFound)
	}
}

// Logout ends the admin session.
func Logout(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		docsession.ClearAdmin(sess)
		if err := sess.Regenerate(); err != nil {
			return err
		}
		docsession.AddFlash(sess, "info", "Logged out.")
		if err := sess.Save(); err != nil {
			return err
		}
		return c.Redirect("/admin", fiber.StatusFound)
	}
}

// Dashboard lists every username, newest first.
func Dashboard(store *session.Store, docs service.DocumentService, publicBaseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := docs.List(c.UserContext())
		if err != nil {
			return err
		}
		admin, _ := c.Locals(middleware.AdminLocalKey).(string)
		return render(c, store, "admin_dashboard", fiber.Map{
			"Admin":     admin,
			"Documents": list,
			"BaseURL":   baseURL(c, publicBaseURL),
		})
	}
}

// CreateUsername reserves a username without a PDF.
func CreateUsername(store *session.Store, docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := docs.Create(c.UserContext(), c.FormValue("username"))
		switch {
		case err == nil:
			return redirectWithFlash(c, store, "success",
				fmt.Sprintf("Username %q created. Its QR code is ready.", doc.Username), dashboardPath)
		case errors.Is(err, service.ErrUsernameRequired):
			return redirectWithFlash(c, store, "error", "Username is required.", dashboardPath)
		case errors.Is(err, service.ErrReservedUsername):
			return redirectWithFlash(c, store, "error", "That username is reserved.", dashboardPath)
		case errors.Is(err, service.ErrInvalidUsername):
			return redirectWithFlash(c, store, "error", "Username must contain letters or digits.", dashboardPath)
		case errors.Is(err, service.ErrUsernameTaken):
			return redirectWithFlash(c, store, "error", "That username already exists.", dashboardPath)
		default:
			return err
		}
	}
}

// Upload attaches or replaces the PDF of an existing username.
func Upload(store *session.Store, docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("pdf_file")
		if err != nil || fh.Filename == "" {
			return redirectWithFlash(c, store, "error", "No file selected.", dashboardPath)
		}
		name := strings.TrimSpace(c.FormValue("username"))
		if name == "" {
			return redirectWithFlash(c, store, "error", "File and username are required.", dashboardPath)
		}

		f, err := fh.Open()
		if err != nil {
			return redirectWithFlash(c, store, "error", "Cannot read the uploaded file.", dashboardPath)
		}
		defer f.Close()

		doc, err := docs.Upload(c.UserContext(), name, f, fh.Filename)
		switch {
		case err == nil:
			return redirectWithFlash(c, store, "success",
				fmt.Sprintf("PDF uploaded for %q.", doc.Username), dashboardPath)
		case errors.Is(err, service.ErrNotPDF):
			return redirectWithFlash(c, store, "error", "Only PDF files are accepted.", dashboardPath)
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrInvalidUsername):
			return redirectWithFlash(c, store, "error",
				fmt.Sprintf("Username %q not found. Create it first.", name), dashboardPath)
		case errors.Is(err, service.ErrFileRequired), errors.Is(err, service.ErrUsernameRequired):
			return redirectWithFlash(c, store, "error", "File and username are required.", dashboardPath)
		default:
			return err
		}
	}
}

// Delete removes a username and its PDF.
func Delete(store *session.Store, docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return fiber.ErrNotFound
		}
		if err := docs.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		return redirectWithFlash(c, store, "success", "Username and document deleted.", dashboardPath)
	}
}

// QRPage shows the QR code for a username's public page.
func QRPage(docs service.DocumentService, gen qr.Generator, publicBaseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := docs.GetByUsername(c.UserContext(), c.Params("username"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		target := baseURL(c, publicBaseURL) + "/" + doc.Username
		uri, err := qr.DataURI(gen, target)
		if err != nil {
			return err
		}
		return c.Render("qr_code", fiber.Map{
			"Username": doc.Username,
			"URL":      target,
			// data: URLs are otherwise replaced by html/template.
			"QRCode": template.URL(uri),
			"HasPDF": doc.HasPDF(),
		})
	}
}

// QRPNG returns the QR code as a downloadable PNG.
func QRPNG(docs service.DocumentService, gen qr.Generator, publicBaseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := docs.GetByUsername(c.UserContext(), c.Params("username"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		png, err := gen.PNG(baseURL(c, publicBaseURL) + "/" + doc.Username)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "image/png")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s_qr.png"`, doc.Username))
		return c.Send(png)
	}
}
