// Package qr renders the QR codes that point at public user pages.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Generator produces PNG-encoded QR codes.
type Generator interface {
	PNG(content string) ([]byte, error)
}

// Encoder encodes with a fixed recovery level and module scale.
// The quiet zone is go-qrcode's default four modules.
type Encoder struct {
	Level        qrcode.RecoveryLevel
	ModulePixels int
}

// NewEncoder returns an encoder with low error correction and 10 px per module.
func NewEncoder() *Encoder {
	return &Encoder{Level: qrcode.Low, ModulePixels: 10}
}

var _ Generator = (*Encoder)(nil)

// PNG encodes content. The image grows with the QR version, ModulePixels per module.
func (e *Encoder) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	q, err := qrcode.New(content, e.Level)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	// A negative size asks go-qrcode for -size pixels per module.
	png, err := q.PNG(-e.ModulePixels)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return png, nil
}

// DataURI renders content with g and wraps the PNG for an <img src>.
func DataURI(g Generator, content string) (string, error) {
	png, err := g.PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
