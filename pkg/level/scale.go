package level

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

var scaleLabelRE = regexp.MustCompile(`\b([0-9]{1,3})\b`)

// ReadScaleLabels runs OCR over a strip photo and returns the printed cm
// labels it can make out, ascending and deduplicated. This bootstraps a new
// site's calibration: an operator matches each recognized label to the pixel
// row it sits on and confirms the pairs before they are stored. Recognition
// is best-effort; an empty result is not an error.
func ReadScaleLabels(path string) ([]int, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open strip photo: %w", err)
	}
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < 800 {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}
	tmpFile, err := os.CreateTemp("", "scale-*.png")
	tmp := path
	if err == nil {
		tmp = tmpFile.Name()
		_ = tmpFile.Close()
		if err := imaging.Save(gray, tmp); err != nil {
			tmp = path
		}
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	_ = client.SetWhitelist("0123456789 ")
	client.SetImage(tmp)
	text, err := client.Text()
	if tmp != path {
		_ = os.Remove(tmp)
	}
	if err != nil {
		return nil, fmt.Errorf("ocr error: %w", err)
	}
	return parseScaleLabels(text), nil
}

// parseScaleLabels extracts plausible cm labels from raw OCR text. Scale
// markings are multiples of 5 up to 300 on every strip we have seen; other
// numbers are OCR noise or serial fragments and are dropped.
func parseScaleLabels(text string) []int {
	seen := map[int]struct{}{}
	var labels []int
	for _, m := range scaleLabelRE.FindAllStringSubmatch(strings.TrimSpace(text), -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 300 || n%5 != 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		labels = append(labels, n)
	}
	sort.Ints(labels)
	return labels
}
