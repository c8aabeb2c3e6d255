package handler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docqr/internal/http/filesend"
	"docqr/internal/service"
)

// Index renders the landing page.
func Index() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Render("index", fiber.Map{})
	}
}

// NotFound always answers 404; used for well-known files we do not serve.
func NotFound() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	}
}

func pdfURL(filename string) string {
	return "/pdf/" + url.PathEscape(filename)
}

// UserPage renders the public page behind a QR code. Android browsers cannot
// show inline PDFs, so they are sent straight to the file.
func UserPage(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("username")
		doc, err := docs.GetByUsername(c.UserContext(), name)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}

		if !doc.HasPDF() {
			return c.Render("user_page_no_pdf", fiber.Map{"Username": doc.Username})
		}

		download := pdfURL(doc.Filename)
		if strings.Contains(strings.ToLower(c.Get(fiber.HeaderUserAgent)), "android") {
			return c.Redirect(download, fiber.StatusFound)
		}
		return c.Render("user_page", fiber.Map{
			"Username":    doc.Username,
			"ViewerURL":   "/viewer/" + url.PathEscape(doc.Username),
			"DownloadURL": download + "?download=1",
		})
	}
}

// Viewer renders the embedded PDF viewer page.
func Viewer(docs service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := docs.GetByUsername(c.UserContext(), c.Params("username"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		if !doc.HasPDF() {
			return fiber.ErrNotFound
		}
		return c.Render("pdf_viewer", fiber.Map{
			"Username":    doc.Username,
			"PDFURL":      pdfURL(doc.Filename),
			"DownloadURL": pdfURL(doc.Filename) + "?download=1",
		})
	}
}

// ServePDF byte-serves a stored PDF. "?download=1" asks for an attachment.
func ServePDF(docs service.DocumentService, maxAge int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("filename"))
		if err != nil {
			return fiber.ErrNotFound
		}
		obj, info, err := docs.Open(c.UserContext(), name)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidFilename) {
				return fiber.ErrNotFound
			}
			return err
		}
		return filesend.Send(c, obj, info, filesend.Options{
			ContentType:  "application/pdf",
			DownloadName: name,
			Attachment:   c.Query("download") == "1",
			MaxAge:       maxAge,
		})
	}
}
