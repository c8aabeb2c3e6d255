package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"docqr/internal/http/middleware"
	"docqr/internal/qr"
	"docqr/internal/service"
)

// Deps are the collaborators the routes need.
type Deps struct {
	DB        *sql.DB
	Documents service.DocumentService
	Auth      service.AuthService
	Sessions  *session.Store
	QR        qr.Generator
	Log       logrus.FieldLogger
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	PublicBaseURL  string
	PDFCacheMaxAge int
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// The catch-all /:username is registered last so fixed paths win.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.QR == nil {
		d.QR = qr.NewEncoder()
	}

	if d.DB != nil {
		app.Get("/health", HealthCheck(d.DB))
	}
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Get("/", Index())
	for _, p := range []string{"/favicon.ico", "/robots.txt", "/sitemap.xml"} {
		app.Get(p, NotFound())
	}

	// GET also answers HEAD.
	app.Get("/pdf/:filename", ServePDF(d.Documents, d.PDFCacheMaxAge))

	admin := app.Group("/admin", middleware.NoCache())
	admin.Get("/", LoginForm(d.Sessions))
	admin.Post("/", Login(d.Sessions, d.Auth, d.Log))

	guard := middleware.RequireAdmin(d.Sessions)
	admin.Get("/logout", guard, Logout(d.Sessions))
	admin.Get("/dashboard", guard, Dashboard(d.Sessions, d.Documents, d.PublicBaseURL))
	admin.Post("/create-username", guard, CreateUsername(d.Sessions, d.Documents))
	admin.Post("/upload", guard, Upload(d.Sessions, d.Documents))
	admin.Post("/delete/:id", guard, Delete(d.Sessions, d.Documents))
	admin.Get("/qr/:username", guard, QRPage(d.Documents, d.QR, d.PublicBaseURL))
	admin.Get("/qr/:username/png", guard, QRPNG(d.Documents, d.QR, d.PublicBaseURL))

	app.Get("/viewer/:username", middleware.NoCache(), Viewer(d.Documents))
	app.Get("/:username", middleware.NoCache(), UserPage(d.Documents))
}
