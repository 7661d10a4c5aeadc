// Package qrshare renders a dashboard view URL as a QR PNG so a crew can
// move the exact filtered view from the office screen to a handheld in the
// truck. Encoding is github.com/skip2/go-qrcode; EC level M keeps the code
// compact for long query strings.
package qrshare

import (
	"fmt"
	"image/color"
	"io"

	qrcode "github.com/skip2/go-qrcode"
)

// Options controls the rendered PNG. Zero values fall back to sane
// defaults, so callers can pass Options{}.
type Options struct {
	TargetPx int        // output edge length, default 512
	Fg       color.RGBA // module color, default black
	Bg       color.RGBA // background, default white
}

// EncodePNG writes the QR for url into w.
func EncodePNG(w io.Writer, url string, opt Options) error {
	if opt.TargetPx <= 0 {
		opt.TargetPx = 512
	}
	if opt.Fg == (color.RGBA{}) {
		opt.Fg = color.RGBA{0, 0, 0, 255}
	}
	if opt.Bg == (color.RGBA{}) {
		opt.Bg = color.RGBA{255, 255, 255, 255}
	}

	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qr encode: %w", err)
	}
	q.ForegroundColor = opt.Fg
	q.BackgroundColor = opt.Bg

	png, err := q.PNG(opt.TargetPx)
	if err != nil {
		return fmt.Errorf("qr png: %w", err)
	}
	if _, err := w.Write(png); err != nil {
		return fmt.Errorf("qr write: %w", err)
	}
	return nil
}
