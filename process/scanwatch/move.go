package scanwatch

import (
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// moveToProcessed moves src into dir, downscaling images larger than maxBytes.
// It attempts an atomic rename and falls back to copy+remove when necessary.
func moveToProcessed(src, dir, name string, maxBytes int64) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)

	fi, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if fi.Size() <= maxBytes {
		return dst, rename(src, dst)
	}
	img, err := imaging.Open(src)
	if err != nil { // fallback to raw move if cannot decode
		return dst, rename(src, dst)
	}
	// size roughly scales with area
	scale := math.Sqrt(float64(maxBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	small := imaging.Resize(img, w, h, imaging.Lanczos)
	if err := imaging.Save(small, dst); err != nil {
		return dst, rename(src, dst)
	}
	return dst, os.Remove(src)
}

func rename(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
