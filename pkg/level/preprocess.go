package level

import (
	"image"

	"github.com/disintegration/imaging"
)

// laplacian is the 3x3 edge-detection kernel applied to the grayscale strip.
// Uniform regions sum to zero; the surface line survives as a bright row
// followed by sustained black.
var laplacian = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// PrepareStrip crops the configured strip out of the source photo, converts
// it to grayscale, runs edge detection and collapses it to a one-pixel-wide
// column, one row per scanned pixel.
func PrepareStrip(src image.Image, cfg Config) *image.NRGBA {
	b := src.Bounds()
	width := cfg.StripWidth
	if width <= 0 || cfg.StripOffset+width > b.Dx() {
		width = b.Dx() - cfg.StripOffset
	}
	strip := imaging.Crop(src, image.Rect(b.Min.X+cfg.StripOffset, b.Min.Y, b.Min.X+cfg.StripOffset+width, b.Max.Y))
	gray := imaging.Grayscale(strip)
	edges := imaging.Convolve3x3(gray, laplacian, nil)
	if edges.Bounds().Dx() == 1 {
		return edges
	}
	return imaging.Resize(edges, 1, edges.Bounds().Dy(), imaging.Lanczos)
}

// ProfileFromImage produces the brightness profile for a photo: one sample
// per row of the prepared strip column, top to bottom. Grayscale output has
// equal channels, so the red channel is read.
func ProfileFromImage(src image.Image, cfg Config) []int {
	column := PrepareStrip(src, cfg)
	h := column.Bounds().Dy()
	profile := make([]int, h)
	for y := 0; y < h; y++ {
		profile[y] = int(column.NRGBAAt(0, y).R)
	}
	return profile
}
