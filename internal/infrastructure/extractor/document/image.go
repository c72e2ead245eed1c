package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// maxImagePixels caps the decoded size of an uploaded image. A small file can
// declare huge dimensions, and decoding allocates four bytes per pixel.
const maxImagePixels = 50_000_000

var errImageTooLarge = errors.New("image dimensions exceed pixel limit")

// prepareImage downsizes images wider than maxWidth and re-encodes them as
// JPEG. Images within bounds are returned unchanged with resized=false.
// Images whose header declares more than maxImagePixels fail with
// errImageTooLarge before any pixel data is decoded.
func prepareImage(data []byte, maxWidth, quality int) (out []byte, resized bool, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image config: %w", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxImagePixels {
		return nil, false, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}
	if maxWidth <= 0 || cfg.Width <= maxWidth {
		return data, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	height := uint(float64(maxWidth) * float64(bounds.Dy()) / float64(bounds.Dx()))
	if height == 0 {
		height = 1
	}
	small := resize.Resize(uint(maxWidth), height, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: quality}); err != nil {
		return nil, false, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), true, nil
}
