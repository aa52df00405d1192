// Package qrsvc draws and reads the QR codes printed on member ID cards.
package qrsvc

import (
	"image"
	_ "image/jpeg" // scanned photos
	_ "image/png"
	"io"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

var (
	ErrNoCode     = errors.New("no QR code found in image")
	ErrBadImage   = errors.New("unsupported image")
	errEmptyInput = errors.New("nothing to encode")
)

// Encode renders content as a size x size PNG (DefaultSize when size <= 0).
func Encode(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errEmptyInput
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	return png, errors.Wrap(err, "encoding qr code")
}

// Image renders content as an image, for composing into bigger pictures.
func Image(content string, size int) (image.Image, error) {
	if content == "" {
		return nil, errEmptyInput
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}
	code.DisableBorder = true
	return code.Image(size), nil
}

// Decode reads the first QR code found in a PNG or JPEG image.
func Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", ErrBadImage
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errors.Wrap(err, "reading image")
	}

	hints := map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", ErrNoCode
	}
	return res.GetText(), nil
}
