// Package imaging implements the lossy mitigation path for oversized
// uploads and the thumbnail rendition stored alongside originals at the
// relay. It decodes JPEG/PNG, optionally downscales, and re-encodes JPEG at
// decreasing quality until the result fits a size ceiling.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/dmitrijs2005/imgvault/internal/common"
)

// Quality schedule of the re-encode loop, in jpeg.Options units.
const (
	startQuality = 70
	qualityStep  = 10
	floorQuality = 20
)

// Compress re-encodes an oversized image so that it fits under targetMax
// bytes. The image is decoded, downscaled so that neither dimension exceeds
// common.MaxImageDimension (aspect preserved; smaller images are left at
// their native size), and encoded as JPEG starting at quality 70, stepping
// down by 10 until the output fits or the floor of 20 is reached. The
// best-effort result is returned even if still oversized — the caller
// decides whether to reject it. The input slice is never modified.
//
// Compress is a mitigation, not a default path: callers must only invoke it
// when len(data) > targetMax.
func Compress(data []byte, targetMax int64) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = scaleDown(img, common.MaxImageDimension)

	var out []byte
	for q := startQuality; ; q -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg q=%d: %w", q, err)
		}
		out = buf.Bytes()
		if int64(len(out)) <= targetMax || q-qualityStep < floorQuality {
			break
		}
	}

	return out, nil
}

// Thumbnail renders a small JPEG preview bounded by maxDim on either side.
func Thumbnail(data []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img = scaleDown(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// scaleDown returns img resized so that neither dimension exceeds maxDim,
// preserving aspect ratio. Images already within the cap are returned as is.
func scaleDown(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	ratio := float64(maxDim) / float64(w)
	if r := float64(maxDim) / float64(h); r < ratio {
		ratio = r
	}
	nw := int(float64(w)*ratio + 0.5)
	nh := int(float64(h)*ratio + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
