// Package pairing renders pairing challenges into scannable images.
package pairing

import (
	"encoding/base64"
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSizePx = 256

var ErrEmptyCode = errors.New("pairing: empty code")

// Renderer turns a raw pairing code into a displayable image.
type Renderer interface {
	Render(code string) (string, error)
}

// QRRenderer renders codes as PNG data URIs suitable for direct <img> use.
type QRRenderer struct{}

// Render encodes the code as a QR PNG and returns a data URI.
func (QRRenderer) Render(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyCode
	}
	png, err := qrcode.Encode(code, qrcode.Medium, imageSizePx)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
