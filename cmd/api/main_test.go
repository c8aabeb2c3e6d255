package main

import (
	"encoding/base64"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqr/internal/config"
	"docqr/internal/storage"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestCookieKey(t *testing.T) {
	a := cookieKey("s3cret", quietLogger())
	b := cookieKey("s3cret", quietLogger())
	assert.Equal(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	assert.NotEqual(t, a, cookieKey("other", quietLogger()))

	random := cookieKey("", quietLogger())
	raw, err = base64.StdEncoding.DecodeString(random)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestOpenStorage(t *testing.T) {
	t.Run("local", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "docs")
		cfg := &config.AppConfig{Storage: config.StorageConfig{Driver: "local", DocumentRoot: root}}

		s, err := openStorage(cfg, quietLogger())
		require.NoError(t, err)
		local, ok := s.(*storage.Local)
		require.True(t, ok)
		assert.Equal(t, root, local.Root())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := &config.AppConfig{Storage: config.StorageConfig{Driver: "ftp"}}
		_, err := openStorage(cfg, quietLogger())
		assert.ErrorContains(t, err, "unknown STORAGE_DRIVER")
	})
}
