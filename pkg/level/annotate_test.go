package level

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestAnnotateDrawsMarker(t *testing.T) {
	img := syntheticStrip(20, 40, 30)
	cfg := DefaultConfig()
	out := Annotate(img, 10, cfg)
	px := out.NRGBAAt(5, 10)
	if px.R != 255 || px.G != 0 || px.B != 0 {
		t.Fatalf("expected red marker at detected row, got %+v", px)
	}
	// rows away from the marker are untouched
	px = out.NRGBAAt(5, 20)
	if px.R != 255 || px.G != 255 || px.B != 255 {
		t.Fatalf("expected untouched white pixel, got %+v", px)
	}
}

func TestAnnotateClampsToImage(t *testing.T) {
	img := syntheticStrip(10, 10, 5)
	// marker at row 0: the y-1 row is off-image and must not panic
	out := Annotate(img, 0, DefaultConfig())
	px := out.NRGBAAt(3, 0)
	if px.R != 255 || px.G != 0 {
		t.Fatalf("expected marker on row 0, got %+v", px)
	}
}

func TestAnnotateFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "snapshot.png")
	dst := filepath.Join(dir, "annotated.png")
	if err := imaging.Save(syntheticStrip(20, 40, 30), src); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	if err := AnnotateFile(src, dst, 15, DefaultConfig()); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("annotated image not written: %v", err)
	}
}
