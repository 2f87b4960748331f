// Package qrdecode extracts QR payloads from raw image bytes.
package qrdecode

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi/qrcode"
	"go.uber.org/zap"
)

// ZXingDecoder decodes QR codes with the zxing port. Undecodable images
// yield no payloads rather than errors; a corrupt attachment is noise, not
// a signal.
type ZXingDecoder struct {
	logger *zap.Logger
}

// NewZXingDecoder creates a QR decoder.
func NewZXingDecoder(logger *zap.Logger) *ZXingDecoder {
	return &ZXingDecoder{logger: logger}
}

// DecodePayloads implements core.ImageDecoder. Multiple QR codes in one
// image all come back.
func (d *ZXingDecoder) DecodePayloads(ctx context.Context, data []byte) []string {
	if ctx.Err() != nil || len(data) == 0 {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.logger.Debug("Image decode failed", zap.Error(err))
		return nil
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		d.logger.Debug("Bitmap conversion failed", zap.Error(err))
		return nil
	}

	reader := qrcode.NewQRCodeMultiReader()
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	results, err := reader.DecodeMultiple(bmp, hints)
	if err != nil {
		// No QR code in the image.
		return nil
	}

	payloads := make([]string, 0, len(results))
	for _, r := range results {
		if text := r.GetText(); text != "" {
			payloads = append(payloads, text)
		}
	}
	return payloads
}
