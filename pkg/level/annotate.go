package level

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// markerColor is the confirmation line drawn on the original photo.
var markerColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// Annotate clones the original photo and draws a horizontal marker across
// the strip at the detected row, so an operator can eyeball whether the
// locator picked the actual surface. Purely diagnostic.
func Annotate(src image.Image, pixel int, cfg Config) *image.NRGBA {
	out := imaging.Clone(src)
	b := out.Bounds()
	width := cfg.StripWidth
	if width <= 0 || cfg.StripOffset+width > b.Dx() {
		width = b.Dx() - cfg.StripOffset
	}
	for y := pixel - 1; y <= pixel+1; y++ {
		if y < 0 || y >= b.Dy() {
			continue
		}
		for x := cfg.StripOffset; x < cfg.StripOffset+width; x++ {
			out.SetNRGBA(x, y, markerColor)
		}
	}
	return out
}

// AnnotateFile reads the snapshot at srcPath, draws the marker and saves the
// result to dstPath (format chosen from the extension).
func AnnotateFile(srcPath, dstPath string, pixel int, cfg Config) error {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", srcPath, err)
	}
	if err := imaging.Save(Annotate(img, pixel, cfg), dstPath); err != nil {
		return fmt.Errorf("save annotated image %s: %w", dstPath, err)
	}
	return nil
}
