// Snapshot inbox worker: measures every photo in a directory and records the
// results, optionally staying resident and watching for new files. Cameras
// that push images over FTP/scp drop them here; the worker turns each one
// into a Measurement row. Failed runs are recorded with the reason instead of
// being discarded.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tanklevel/models"
	"tanklevel/pkg/level"
)

// Global DB handle for helper funcs
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	dryRun  bool
)

// recordedState caches which snapshot paths already have a Measurement row so
// re-scans stay idempotent without a per-file query.
type recordedState struct {
	byPath map[string]struct{}
	mu     sync.RWMutex
}

func newRecordedState() *recordedState {
	return &recordedState{byPath: make(map[string]struct{}, 1024)}
}

func (rs *recordedState) seen(path string) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	_, ok := rs.byPath[path]
	return ok
}

func (rs *recordedState) mark(path string) {
	rs.mu.Lock()
	rs.byPath[path] = struct{}{}
	rs.mu.Unlock()
}

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func main() {
	dirFlag := flag.String("dir", "snapshots", "directory to scan for tank snapshots")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.BoolVar(&dryRun, "dry-run", false, "Measure and log results without writing to the DB")
	flag.Parse()

	if !dryRun {
		db = mustInitDBFromEnv()
	}
	cfg := levelConfigFromEnv()
	cal := mustLoadCalibration()
	rs := preloadRecorded()

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, cfg, cal, rs, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, cfg, cal, rs, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// levelConfigFromEnv mirrors the server's tuning variables so worker and API
// measure identically.
func levelConfigFromEnv() level.Config {
	cfg := level.DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv("BRIGHT_THRESHOLD")); err == nil {
		cfg.BrightThreshold = v
	}
	if v, err := strconv.Atoi(os.Getenv("ZERO_RUN")); err == nil && v >= 1 {
		cfg.ZeroRun = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("LITERS_PER_CM"), 64); err == nil && v > 0 {
		cfg.LitersPerCm = v
	}
	if v, err := strconv.Atoi(os.Getenv("STRIP_OFFSET")); err == nil && v >= 0 {
		cfg.StripOffset = v
	}
	if v, err := strconv.Atoi(os.Getenv("STRIP_WIDTH")); err == nil && v > 0 {
		cfg.StripWidth = v
	}
	return cfg
}

// mustLoadCalibration prefers the DB table; with -dry-run (no DB) it falls
// back to the CALIBRATION_FILE env.
func mustLoadCalibration() *level.Calibration {
	if dryRun {
		path := os.Getenv("CALIBRATION_FILE")
		if path == "" {
			path = "calibration.json"
		}
		cal, err := level.LoadCalibrationFile(path)
		if err != nil {
			log.Fatalf("dry-run calibration: %v", err)
		}
		return cal
	}
	var rows []models.CalibrationPoint
	if err := db.Order("height_cm asc").Find(&rows).Error; err != nil {
		log.Fatalf("failed to load calibration points: %v", err)
	}
	points := make([]level.CalibrationPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, level.CalibrationPoint{HeightCm: r.HeightCm, PixelOffset: r.PixelOffset})
	}
	cal, err := level.NewCalibration(points)
	if err != nil {
		log.Fatalf("calibration table unusable: %v", err)
	}
	return cal
}

// preloadRecorded fetches already-measured snapshot paths to minimize
// per-file queries.
func preloadRecorded() *recordedState {
	rs := newRecordedState()
	if dryRun {
		return rs
	}
	var ms []models.Measurement
	if err := db.Select("snapshot_path").Find(&ms).Error; err == nil {
		for _, m := range ms {
			if m.SnapshotPath != "" {
				rs.byPath[m.SnapshotPath] = struct{}{}
			}
		}
	}
	return rs
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	// ignore annotated output images to avoid recursive processing
	if strings.Contains(name, ".annotated.") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return false
}

// processSingleFile measures one snapshot and records the outcome. Snapshot
// mtime is taken as the capture time; a push camera writes the file at the
// moment it shoots.
func processSingleFile(dir, name string, cfg level.Config, cal *level.Calibration, rs *recordedState) {
	path := filepath.Join(dir, name)
	if rs.seen(path) {
		logV("skip %s (already recorded)", name)
		return
	}
	measuredAt := time.Now()
	if fi, err := os.Stat(path); err == nil {
		measuredAt = fi.ModTime()
	}
	doc, err := level.MeasureImage(path, cal, cfg, measuredAt)
	if err != nil {
		log.Printf("measure %s failed: %v", name, err)
		if !dryRun {
			m := models.Measurement{MeasuredAt: measuredAt, SnapshotPath: path, Failed: true, FailedReason: err.Error()}
			if dbErr := db.Create(&m).Error; dbErr != nil {
				log.Printf("failed to record failure for %s: %v", name, dbErr)
				return
			}
		}
		rs.mark(path)
		return
	}
	logV("%s pixel=%d level=%.1fcm volume=%.1fl", name, doc.LevelPixel, doc.LevelCm, doc.LevelLiter)
	if !dryRun {
		m := models.Measurement{
			MeasuredAt:   measuredAt,
			LevelCm:      doc.LevelCm,
			LevelLiter:   doc.LevelLiter,
			LevelPixel:   doc.LevelPixel,
			SnapshotPath: path,
		}
		if err := db.Create(&m).Error; err != nil {
			log.Printf("failed to record measurement for %s: %v", name, err)
			return
		}
	}
	rs.mark(path)
}

func watchDirectory(dir string, cfg level.Config, cal *level.Calibration, rs *recordedState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files; cameras write in chunks
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too
	go runWorkerPool(dir, cfg, cal, rs, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(dir string, cfg level.Config, cal *level.Calibration, rs *recordedState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, cfg, cal, rs)
			}
		}()
	}
	// feed initial
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		// also relay from extra channels if provided
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		// if no extraCh (scan only) close when done
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}
