// Package camera fetches still images from the tank webcam over HTTP.
package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds a snapshot fetch; the camera is on the local network
// and a slow answer means a broken capture, not congestion.
const DefaultTimeout = 15 * time.Second

// Client fetches snapshots from a single fixed camera.
type Client struct {
	URL     string
	Timeout time.Duration
	hc      *http.Client
}

// New returns a client for the camera's still-image URL.
func New(url string) *Client {
	return &Client{URL: url, Timeout: DefaultTimeout, hc: &http.Client{}}
}

// Fetch downloads one still image into destDir and returns the stored path.
// The file is written to a temp name first and renamed into place so a
// watcher on the directory never sees a half-written image.
func (c *Client) Fetch(ctx context.Context, destDir string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build camera request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch snapshot from %s: %w", c.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	ext := extensionFor(resp.Header.Get("Content-Type"))
	name := "snapshot-" + time.Now().UTC().Format("20060102-150405") + ext
	dest := filepath.Join(destDir, name)

	tmp, err := os.CreateTemp(destDir, ".snapshot-*")
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return dest, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif"
	default:
		// jpeg cameras commonly omit or mangle the header
		return ".jpg"
	}
}
