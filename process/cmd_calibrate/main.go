// Calibration bootstrap helper. Runs OCR over a strip photo, lists the cm
// labels it recognized and writes a skeleton calibration file the operator
// fills in with the matching pixel offsets (read off the annotated photo or
// an image viewer). The OCR only proposes heights; nothing is stored without
// the operator editing and installing the file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"tanklevel/pkg/level"
)

func main() {
	imagePath := flag.String("image", "", "strip photo to read scale labels from")
	outPath := flag.String("out", "", "write a skeleton calibration file (heights with pixel_offset 0)")
	flag.Parse()

	if *imagePath == "" {
		log.Fatalf("-image is required")
	}
	labels, err := level.ReadScaleLabels(*imagePath)
	if err != nil {
		log.Fatalf("read scale labels: %v", err)
	}
	if len(labels) == 0 {
		log.Fatalf("no scale labels recognized in %s; retry with a sharper photo", *imagePath)
	}

	fmt.Printf("recognized %d scale labels (cm):", len(labels))
	for _, l := range labels {
		fmt.Printf(" %d", l)
	}
	fmt.Println()

	if *outPath != "" {
		skeleton := make(map[string]float64, len(labels))
		for _, l := range labels {
			skeleton[fmt.Sprintf("%d", l)] = 0 // operator fills in the pixel offset
		}
		data, err := json.MarshalIndent(skeleton, "", "  ")
		if err != nil {
			log.Fatalf("marshal skeleton: %v", err)
		}
		if err := os.WriteFile(*outPath, append(data, '\n'), 0644); err != nil {
			log.Fatalf("write %s: %v", *outPath, err)
		}
		fmt.Printf("skeleton calibration written to %s — fill in the pixel offsets before use\n", *outPath)
	}
}
