package imaging

import (
	"bytes"
	"image"

	img "github.com/disintegration/imaging"

	"shopapi/internal/apperr"
)

// Default dimensions and quality for catalog thumbnails.
const (
	ThumbnailSize   = 500
	ThumbnailWidth  = ThumbnailSize
	ThumbnailHeight = ThumbnailSize
	JPEGQuality     = 90
)

// Transform decodes raw upload bytes, crops/scales them to exactly
// width x height and re-encodes as JPEG with the given quality. Input format
// is whatever the decoder recognizes; output is always JPEG.
func Transform(data []byte, width, height, quality int) ([]byte, error) {
	src, err := img.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.MalformedPayload, err, "unsupported image format")
	}

	resized := img.Fill(src, width, height, img.Center, img.Lanczos)

	var buf bytes.Buffer
	if err := img.Encode(&buf, resized, img.JPEG, img.JPEGQuality(quality)); err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "image encode failed")
	}
	return buf.Bytes(), nil
}

// Thumbnail applies the catalog defaults used for product, variant and user
// images.
func Thumbnail(data []byte) ([]byte, error) {
	return Transform(data, ThumbnailWidth, ThumbnailHeight, JPEGQuality)
}

// Dimensions reports the pixel size of an encoded image, used by tests and
// upload sanity checks.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
