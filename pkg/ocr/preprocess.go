package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Party bar geometry, measured on a 1080p capture.
const (
	referenceHeight = 1080
	barHeightRef    = 65
	minBarHeight    = 60
	maxBarHeight    = 120
	// bar crops are tiny; tesseract reads Hangul better after upscaling
	minOCRHeight = 240
)

// barHeight scales the party bar height to the capture, clamped to a readable band.
func barHeight(imgHeight int) int {
	h := barHeightRef * imgHeight / referenceHeight
	if h < minBarHeight {
		h = minBarHeight
	}
	if h > maxBarHeight {
		h = maxBarHeight
	}
	if h > imgHeight {
		h = imgHeight
	}
	return h
}

// barRect is the bottom band of b where the party panel is drawn.
func barRect(b image.Rectangle) image.Rectangle {
	h := barHeight(b.Dy())
	return image.Rect(b.Min.X, b.Max.Y-h, b.Max.X, b.Max.Y)
}

// preparePartyBar crops the bottom band and cleans it for recognition.
func preparePartyBar(img image.Image) *image.NRGBA {
	crop := imaging.Crop(img, barRect(img.Bounds()))
	return cleanForOCR(crop)
}

// cleanForOCR converts to grayscale, raises contrast and pushes near-white/near-black
// pixels to the extremes.
func cleanForOCR(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 50)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	return levels(gray, 128, 50)
}

// levels maps gray > hi to white and gray < lo to black; pixels in between keep their value.
func levels(img image.Image, hi, lo uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			v := uint8((r + g + bb) / 3 >> 8)
			switch {
			case v > hi:
				v = 255
			case v < lo:
				v = 0
			}
			out.Set(x-b.Min.X, y-b.Min.Y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
