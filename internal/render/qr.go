package render

import (
	"github.com/skip2/go-qrcode"
)

// QREncoder turns text into a PNG image of the given pixel size.
type QREncoder interface {
	Encode(text string, size int) ([]byte, error)
}

// QRCode encodes with skip2/go-qrcode.
type QRCode struct {
	Level qrcode.RecoveryLevel
}

func NewQRCode() QRCode { return QRCode{Level: qrcode.Low} }

func (q QRCode) Encode(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = 200
	}
	return qrcode.Encode(text, q.Level, size)
}
