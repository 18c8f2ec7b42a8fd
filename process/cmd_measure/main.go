// One-shot measurement run for cron-style installations: grab a snapshot
// (camera URL, local photo, or an existing brightness dump), detect the
// level, append one JSON line to the measurement log and optionally write a
// pretty snapshot document plus an annotated confirmation image. No database
// involved; this is the standalone path.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tanklevel/pkg/camera"
	"tanklevel/pkg/level"
)

var (
	cameraURL = flag.String("camera", "", "camera still-image URL to fetch")
	imagePath = flag.String("image", "", "measure a local snapshot instead of fetching")
	dumpPath  = flag.String("dump", "", "measure an existing brightness dump (skips preprocessing)")
	calPath   = flag.String("calibration", "calibration.json", "calibration table file {\"height_cm\": pixel_offset}")
	logPath   = flag.String("log", "fuellstand.log", "append-only measurement log (one JSON line per run)")
	snapPath  = flag.String("snapshot-doc", "", "also write the document pretty-printed to this file")
	annotate  = flag.String("annotate", "", "write an annotated copy of the photo to this file")
	keepDir   = flag.String("keep-dir", "", "directory to store fetched camera images (default temp, discarded)")

	brightThreshold = flag.Int("bright-threshold", 100, "brightness that opens the transition search")
	zeroRun         = flag.Int("zero-run", 3, "consecutive zero samples required for a transition")
	litersPerCm     = flag.Float64("liters-per-cm", 35.37, "volume conversion factor")
	stripOffset     = flag.Int("strip-offset", 0, "x offset of the measurement strip in the photo")
	stripWidth      = flag.Int("strip-width", 0, "width of the strip (0 = full image width)")
	verbose         = flag.Bool("verbose", false, "per-step logging")
)

func logV(format string, args ...any) {
	if *verbose {
		log.Printf(format, args...)
	}
}

func main() {
	flag.Parse()

	cfg := level.Config{
		BrightThreshold: *brightThreshold,
		ZeroRun:         *zeroRun,
		LitersPerCm:     *litersPerCm,
		StripOffset:     *stripOffset,
		StripWidth:      *stripWidth,
	}
	cal, err := level.LoadCalibrationFile(*calPath)
	if err != nil {
		log.Fatalf("calibration: %v", err)
	}
	logV("calibration loaded: %d points", len(cal.Points()))

	photo := *imagePath
	measuredAt := time.Now()

	var doc level.Document
	switch {
	case *dumpPath != "":
		f, err := os.Open(*dumpPath)
		if err != nil {
			log.Fatalf("open dump: %v", err)
		}
		doc, err = level.MeasureDump(f, cal, cfg, measuredAt)
		f.Close()
		if err != nil {
			log.Fatalf("measure dump %s: %v", *dumpPath, err)
		}
	case photo == "" && *cameraURL != "":
		dir := *keepDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "tanklevel-*")
			if err != nil {
				log.Fatalf("temp dir: %v", err)
			}
			defer os.RemoveAll(tmp)
			dir = tmp
		}
		photo, err = camera.New(*cameraURL).Fetch(context.Background(), dir)
		if err != nil {
			log.Fatalf("camera fetch: %v", err)
		}
		logV("snapshot stored at %s", photo)
		fallthrough
	default:
		if photo == "" {
			log.Fatalf("nothing to measure: provide -camera, -image or -dump")
		}
		doc, err = level.MeasureImage(photo, cal, cfg, measuredAt)
		if err != nil {
			log.Fatalf("measure %s: %v", photo, err)
		}
	}

	logV("detected pixel=%d level=%.1fcm volume=%.1fl", doc.LevelPixel, doc.LevelCm, doc.LevelLiter)

	if err := appendLog(*logPath, doc); err != nil {
		log.Fatalf("append log: %v", err)
	}
	if *snapPath != "" {
		pretty, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			log.Fatalf("marshal snapshot doc: %v", err)
		}
		if err := os.WriteFile(*snapPath, append(pretty, '\n'), 0644); err != nil {
			log.Fatalf("write snapshot doc: %v", err)
		}
	}
	if *annotate != "" {
		if photo == "" {
			log.Printf("skipping -annotate: measured from a dump, no photo available")
		} else if err := level.AnnotateFile(photo, *annotate, doc.LevelPixel, cfg); err != nil {
			log.Fatalf("annotate: %v", err)
		}
	}

	fmt.Printf("%s level=%.1fcm volume=%.1fl pixel=%d\n", doc.Timestamp, doc.LevelCm, doc.LevelLiter, doc.LevelPixel)
}

// appendLog adds the document as a single JSON line to the measurement log.
func appendLog(path string, doc level.Document) error {
	line, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}
