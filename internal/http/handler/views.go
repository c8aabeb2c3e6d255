package handler

import (
	"net/http"

	"github.com/gofiber/template/html/v2"

	"docqr/web"
)

// NewViews returns the template engine over the embedded templates.
func NewViews() *html.Engine {
	return html.NewFileSystem(http.FS(web.Templates()), ".html")
}
