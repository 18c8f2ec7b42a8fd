package camera

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchStoresSnapshot(t *testing.T) {
	payload := []byte("not-really-a-png-but-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(srv.URL)
	path, err := c.Fetch(context.Background(), dir)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if filepath.Ext(path) != ".png" {
		t.Fatalf("expected .png extension got %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored snapshot: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("stored bytes differ from response body")
	}
	// no temp leftovers
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".snapshot-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFetchRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Fetch(context.Background(), t.TempDir()); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
