package ocr

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// pass is one recognition attempt over a prepared image.
type pass struct {
	name    string
	prepare func(image.Image) image.Image
}

// passes run in order until one yields text. The whole-frame pass covers
// screenshots that were already cropped to the party panel.
var passes = []pass{
	{"party-bar", func(img image.Image) image.Image { return preparePartyBar(img) }},
	{"full-frame", func(img image.Image) image.Image { return cleanForOCR(img) }},
}

// recognize runs tesseract with Korean and English models over img.
func recognize(img image.Image) (string, error) {
	tmpFile, err := os.CreateTemp("", "ocr-party-*.png")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	defer os.Remove(tmp)
	if err := imaging.Save(img, tmp); err != nil {
		return "", fmt.Errorf("save prepared image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage("kor", "eng"); err != nil {
		return "", fmt.Errorf("ocr language: %w", err)
	}
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	if err := client.SetImage(tmp); err != nil {
		return "", fmt.Errorf("ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return normalizeOCRText(text), nil
}
