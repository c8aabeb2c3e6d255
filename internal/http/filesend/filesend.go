// Package filesend writes stored files to a fiber response with support for
// conditional requests and single byte ranges.
package filesend

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docqr/internal/storage"
)

// Options control the response headers of Send.
type Options struct {
	ContentType string
	// DownloadName is the filename offered in Content-Disposition.
	DownloadName string
	Attachment   bool
	// MaxAge is the Cache-Control max-age in seconds. Stored names change on
	// every upload, so responses are marked immutable.
	MaxAge int
}

// ETag returns the strong validator for info: the quoted SHA-1 of key, size and mtime.
func ETag(info storage.ObjectInfo) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s-%d-%d", info.Key, info.Size, info.LastModified.UnixNano())))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Send streams obj according to the request's conditional and Range headers.
// Send takes ownership of obj and closes it.
func Send(c *fiber.Ctx, obj storage.Object, info storage.ObjectInfo, opt Options) error {
	etag := ETag(info)
	modified := info.LastModified.UTC().Truncate(time.Second)

	if opt.ContentType == "" {
		opt.ContentType = "application/pdf"
	}
	c.Set(fiber.HeaderContentType, opt.ContentType)
	c.Set(fiber.HeaderContentDisposition, disposition(opt))
	c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d, immutable", opt.MaxAge))
	c.Set(fiber.HeaderETag, etag)
	if !info.LastModified.IsZero() {
		c.Set(fiber.HeaderLastModified, modified.Format(http.TimeFormat))
	}
	c.Set(fiber.HeaderAcceptRanges, "bytes")

	if notModified(c, etag, modified) {
		_ = obj.Close()
		c.Response().Header.Del(fiber.HeaderContentType)
		c.Response().Header.Del(fiber.HeaderContentDisposition)
		c.Status(fiber.StatusNotModified)
		return nil
	}

	size := info.Size
	start, end := int64(0), size-1
	status := fiber.StatusOK

	if h := c.Get(fiber.HeaderRange); h != "" && rangeApplies(c, etag, modified) {
		s, e, err := ParseRange(h, size)
		switch {
		case err == nil:
			start, end = s, e
			status = fiber.StatusPartialContent
			c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		case errors.Is(err, ErrUnsatisfiable):
			_ = obj.Close()
			c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", size))
			c.Response().Header.Del(fiber.HeaderContentDisposition)
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
		default:
			// Malformed or non-byte ranges are ignored.
		}
	}

	length := end - start + 1
	if size == 0 {
		length = 0
	}
	c.Status(status)

	if c.Method() == fiber.MethodHead {
		_ = obj.Close()
		c.Context().Response.SkipBody = true
		c.Response().Header.SetContentLength(int(length))
		return nil
	}

	if start > 0 {
		if _, err := obj.Seek(start, io.SeekStart); err != nil {
			_ = obj.Close()
			return fmt.Errorf("seek %s: %w", info.Key, err)
		}
	}
	return c.SendStream(&limitedReadCloser{r: io.LimitReader(obj, length), c: obj}, int(length))
}

func disposition(opt Options) string {
	kind := "inline"
	if opt.Attachment {
		kind = "attachment"
	}
	if opt.DownloadName == "" {
		return kind
	}
	if v := mime.FormatMediaType(kind, map[string]string{"filename": opt.DownloadName}); v != "" {
		return v
	}
	return kind
}

// notModified evaluates If-None-Match, then If-Modified-Since when no entity tag was sent.
func notModified(c *fiber.Ctx, etag string, modified time.Time) bool {
	if inm := c.Get(fiber.HeaderIfNoneMatch); inm != "" {
		return etagListMatches(inm, etag)
	}
	if ims := c.Get(fiber.HeaderIfModifiedSince); ims != "" && !modified.IsZero() {
		t, err := http.ParseTime(ims)
		return err == nil && !modified.After(t)
	}
	return false
}

// rangeApplies evaluates If-Range: a stale validator means the full body is sent.
func rangeApplies(c *fiber.Ctx, etag string, modified time.Time) bool {
	ir := strings.TrimSpace(c.Get(fiber.HeaderIfRange))
	if ir == "" {
		return true
	}
	if strings.HasPrefix(ir, `"`) || strings.HasPrefix(ir, "W/") {
		// Weak tags never satisfy If-Range.
		return ir == etag
	}
	t, err := http.ParseTime(ir)
	return err == nil && !modified.IsZero() && modified.Equal(t)
}

func etagListMatches(list, etag string) bool {
	for _, tag := range strings.Split(list, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

// limitedReadCloser reads a window of an object and closes the whole object.
type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error               { return l.c.Close() }
