package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

func TestBarHeight(t *testing.T) {
	tests := []struct {
		h, want int
	}{
		{1080, 65},
		{2160, 120},
		{1440, 86},
		{720, 60},
		{40, 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, barHeight(tt.h), "height %d", tt.h)
	}
}

func TestBarRect(t *testing.T) {
	r := barRect(image.Rect(0, 0, 1920, 1080))
	assert.Equal(t, image.Rect(0, 1015, 1920, 1080), r)
}

func TestPreparePartyBarSize(t *testing.T) {
	img := imaging.New(1920, 1080, color.NRGBA{200, 200, 200, 255})
	out := preparePartyBar(img)
	assert.Equal(t, minOCRHeight, out.Bounds().Dy())
	assert.Equal(t, 0, out.Bounds().Min.Y)
}

func TestLevels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.NRGBA{200, 200, 200, 255})
	img.Set(1, 0, color.NRGBA{90, 90, 90, 255})
	img.Set(2, 0, color.NRGBA{20, 20, 20, 255})

	out := levels(img, 128, 50)
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{90, 90, 90, 255}, out.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(2, 0))
}

func TestNormalizeOCRText(t *testing.T) {
	assert.Equal(t, "민수 [시엘]\n철수[이스]", normalizeOCRText("  민수   [시엘] \r\n\n\t철수[이스]  \n"))
	assert.Equal(t, "", normalizeOCRText(" \n "))
}

func TestNormalizeOCRTextFoldsCompatibilityForms(t *testing.T) {
	assert.Equal(t, "민수[시엘]", normalizeOCRText("민수［시엘］"))
	// decomposed syllables recompose
	assert.Equal(t, "민", normalizeOCRText("민"))
}
