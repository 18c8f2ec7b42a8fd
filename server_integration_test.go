package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	tmp := t.TempDir()
	_ = os.Setenv("SNAPSHOT_BASE", tmp)
	initDB()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func loginAs(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login %s failed status=%d body=%s", username, resp.Code, resp.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("login response: %v", err)
	}
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response: %s", resp.Body.String())
	}
	return token
}

// snapshotUpload builds a multipart body containing a synthetic strip photo:
// white above the surface row, black below it.
func snapshotUpload(t *testing.T, surfaceRow int) (*bytes.Buffer, string) {
	t.Helper()
	img := imaging.New(3, 400, color.NRGBA{255, 255, 255, 255})
	for y := surfaceRow; y < 400; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	var png bytes.Buffer
	if err := imaging.Encode(&png, img, imaging.PNG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("snapshot", "fixture.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(png.Bytes()); err != nil {
		t.Fatalf("write form: %v", err)
	}
	mw.Close()
	return body, mw.FormDataContentType()
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register an observer
	regBody, _ := json.Marshal(map[string]string{"username": "observer1", "password": "passw1"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	observerToken := loginAs(t, r, "observer1", "passw1")

	// 2. Observers cannot write calibration
	calBody := []byte(`[{"height_cm":0,"pixel_offset":300},{"height_cm":100,"pixel_offset":100}]`)
	resp = performRequest(r, http.MethodPost, "/calibration", bytes.NewBuffer(calBody), observerToken, "application/json")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for observer calibration write, got %d", resp.Code)
	}

	// 3. Admin installs the calibration table
	adminToken := loginAs(t, r, "admin", "admin123")
	resp = performRequest(r, http.MethodPost, "/calibration", bytes.NewBuffer(calBody), adminToken, "application/json")
	if resp.Code != 200 {
		t.Fatalf("calibration write failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/calibration", nil, observerToken, "")
	if resp.Code != 200 {
		t.Fatalf("calibration read failed status=%d", resp.Code)
	}

	// 4. Run a measurement on an uploaded synthetic snapshot
	body, ct := snapshotUpload(t, 200)
	resp = performRequest(r, http.MethodPost, "/measurements/run", body, observerToken, ct)
	if resp.Code != 200 {
		t.Fatalf("measurement run failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var runOut struct {
		ID          uint `json:"id"`
		Measurement struct {
			LevelCm    float64 `json:"level_cm"`
			LevelLiter float64 `json:"level_liter"`
			LevelPixel int     `json:"level_pixel"`
		} `json:"measurement"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &runOut); err != nil {
		t.Fatalf("run response: %v", err)
	}
	if runOut.Measurement.LevelPixel != 200 || runOut.Measurement.LevelCm != 50.0 {
		t.Fatalf("unexpected measurement: %+v", runOut.Measurement)
	}

	// 5. Latest reflects the run
	resp = performRequest(r, http.MethodGet, "/measurements/latest", nil, observerToken, "")
	if resp.Code != 200 {
		t.Fatalf("latest failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. Annotated snapshot renders
	resp = performRequest(r, http.MethodGet, "/measurements/"+strconv.FormatUint(uint64(runOut.ID), 10)+"/annotated", nil, observerToken, "")
	if resp.Code != 200 {
		t.Fatalf("annotated failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	if resp.Body.Len() == 0 {
		t.Fatalf("annotated response empty")
	}
}
