package ocr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

var logger = zap.NewNop().Sugar()

// SetLogger routes OCR pass logging to l.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l.Sugar()
	}
}

// ExtractPartyText recognizes the party panel text in the screenshot at path.
// It returns ErrNoText when every pass came back empty.
func ExtractPartyText(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	return ExtractPartyTextFromImage(img)
}

// ExtractPartyTextFromImage is ExtractPartyText for an already decoded image.
func ExtractPartyTextFromImage(img image.Image) (string, error) {
	var lastErr error
	for _, p := range passes {
		text, err := recognize(p.prepare(img))
		if err != nil {
			logger.Warnf("OCR pass=%s failed: %v", p.name, err)
			lastErr = err
			continue
		}
		if text != "" {
			logger.Infof("OCR pass=%s snippet=%q", p.name, snippet(text, 120))
			return text, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, lastErr)
	}
	return "", ErrNoText
}
