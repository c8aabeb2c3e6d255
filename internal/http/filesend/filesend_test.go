package filesend

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqr/internal/storage"
)

type memObject struct {
	*bytes.Reader
	closed bool
}

func (m *memObject) Close() error {
	m.closed = true
	return nil
}

var (
	content = []byte("%PDF-1.4 0123456789abcdefghijklmnopqrstuvwxyz")
	mtime   = time.Date(2024, 3, 1, 10, 30, 15, 123456789, time.UTC)
	info    = storage.ObjectInfo{Key: "alice_0011223344556677.pdf", Size: int64(len(content)), LastModified: mtime}
)

func newApp(opened *[]*memObject, opt Options) *fiber.App {
	app := fiber.New()
	app.Get("/pdf", func(c *fiber.Ctx) error {
		obj := &memObject{Reader: bytes.NewReader(content)}
		*opened = append(*opened, obj)
		return Send(c, obj, info, opt)
	})
	return app
}

func do(t *testing.T, app *fiber.App, method string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, "/pdf", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestSend_FullBody(t *testing.T) {
	var opened []*memObject
	app := newApp(&opened, Options{DownloadName: "CV.pdf", MaxAge: 3600})

	resp, body := do(t, app, http.MethodGet, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(content), body)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `inline; filename=CV.pdf`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "public, max-age=3600, immutable", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	assert.Equal(t, ETag(info), resp.Header.Get("ETag"))
	assert.Equal(t, "Fri, 01 Mar 2024 10:30:15 GMT", resp.Header.Get("Last-Modified"))
	assert.Equal(t, int64(len(content)), resp.ContentLength)
	require.Len(t, opened, 1)
	assert.True(t, opened[0].closed)
}

func TestSend_Attachment(t *testing.T) {
	var opened []*memObject
	app := newApp(&opened, Options{DownloadName: "résumé.pdf", Attachment: true})

	resp, _ := do(t, app, http.MethodGet, nil)

	cd := resp.Header.Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(cd, "attachment;"), cd)
	assert.Contains(t, cd, "filename*=utf-8''r%C3%A9sum%C3%A9.pdf")
}

func TestSend_Range(t *testing.T) {
	var opened []*memObject
	app := newApp(&opened, Options{})
	size := len(content)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantRange  string
	}{
		{"prefix", "bytes=0-4", http.StatusPartialContent, "%PDF-", "bytes 0-4/" + itoa(size)},
		{"open ended", "bytes=" + itoa(size-3) + "-", http.StatusPartialContent, "xyz", "bytes " + itoa(size-3) + "-" + itoa(size-1) + "/" + itoa(size)},
		{"suffix", "bytes=-2", http.StatusPartialContent, "yz", "bytes " + itoa(size-2) + "-" + itoa(size-1) + "/" + itoa(size)},
		{"clamped end", "bytes=9-100000", http.StatusPartialContent, string(content[9:]), "bytes 9-" + itoa(size-1) + "/" + itoa(size)},
		{"beyond end", "bytes=100000-", http.StatusRequestedRangeNotSatisfiable, "", "bytes */" + itoa(size)},
		{"zero suffix", "bytes=-0", http.StatusRequestedRangeNotSatisfiable, "", "bytes */" + itoa(size)},
		{"malformed ignored", "bytes=x-y", http.StatusOK, string(content), ""},
		{"other unit ignored", "pages=1-2", http.StatusOK, string(content), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, app, http.MethodGet, map[string]string{"Range": tt.header})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantRange, resp.Header.Get("Content-Range"))
			if tt.wantStatus != http.StatusRequestedRangeNotSatisfiable {
				assert.Equal(t, tt.wantBody, body)
				assert.Equal(t, int64(len(tt.wantBody)), resp.ContentLength)
			}
		})
	}
	for _, o := range opened {
		assert.True(t, o.closed)
	}
}

func TestSend_IfRange(t *testing.T) {
	var opened []*memObject
	app := newApp(&opened, Options{})

	resp, body := do(t, app, http.MethodGet, map[string]string{"Range": "bytes=0-4", "If-Range": ETag(info)})
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "%PDF-", body)

	resp, body = do(t, app, http.MethodGet, map[string]string{"Range": "bytes=0-4", "If-Range": `"stale"`})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(content), body)

	resp, _ = do(t, app, http.MethodGet, map[string]string{"Range": "bytes=0-4", "If-Range": "Fri, 01 Mar 2024 10:30:15 GMT"})
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)

	resp, _ = do(t, app, http.MethodGet, map[string]string{"Range": "bytes=0-4", "If-Range": "Thu, 29 Feb 2024 00:00:00 GMT"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSend_Conditional(t *testing.T) {
	var opened []*memObject
	app := newApp(&opened, Options{})
	etag := ETag(info)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"matching etag", map[string]string{"If-None-Match": etag}, http.StatusNotModified},
		{"weak etag in list", map[string]string{"If-None-Match": `"other", W/` + etag}, http.StatusNotModified},
		{"star", map[string]string{"If-None-Match": "*"}, http.StatusNotModified},
		{"different etag", map[string]string{"If-None-Match": `"other"`}, http.StatusOK},
		{"etag wins over date", map[string]string{"If-None-Match": `"other"`, "If-Modified-Since": "Sat, 01 Mar 2025 00:00:00 GMT"}, http.StatusOK},
		{"modified since earlier date", map[string]string{"If-Modified-Since": "Thu, 29 Feb 2024 00:00:00 GMT"}, http.StatusOK},
		{"not modified since same second", map[string]string{"If-Modified-Since": "Fri, 01 Mar 2024 10:30:15 GMT"}, http.StatusNotModified},
		{"garbage date", map[string]string{"If-Modified-Since": "yesterday"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, app, http.MethodGet, tt.headers)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusNotModified {
				assert.Empty(t, body)
				assert.Equal(t, etag, resp.Header.Get("ETag"))
			}
		})
	}
}

func TestSend_Head(t *testing.T) {
	var opened []*memObject
	app := newApp(&opened, Options{})

	resp, body := do(t, app, http.MethodHead, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
	assert.Equal(t, itoa(len(content)), resp.Header.Get("Content-Length"))
	require.Len(t, opened, 1)
	assert.True(t, opened[0].closed)

	resp, _ = do(t, app, http.MethodHead, map[string]string{"Range": "bytes=0-9"})
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "10", resp.Header.Get("Content-Length"))
}

func TestETag_ChangesWithContent(t *testing.T) {
	a := ETag(info)
	b := info
	b.Size++
	c := info
	c.LastModified = c.LastModified.Add(time.Nanosecond)

	assert.True(t, strings.HasPrefix(a, `"`) && strings.HasSuffix(a, `"`))
	assert.Len(t, a, 42)
	assert.NotEqual(t, a, ETag(b))
	assert.NotEqual(t, a, ETag(c))
}

func itoa(n int) string { return strconv.Itoa(n) }
