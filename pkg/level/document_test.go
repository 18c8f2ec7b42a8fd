package level

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDocumentRounding(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	doc := NewDocument(50.04, 1768.51, 187, at)
	if doc.LevelCm != 50.0 {
		t.Fatalf("expected level_cm 50.0 got %v", doc.LevelCm)
	}
	if doc.LevelLiter != 1768.5 {
		t.Fatalf("expected level_liter 1768.5 got %v", doc.LevelLiter)
	}
	if doc.LevelPixel != 187 {
		t.Fatalf("expected level_pixel 187 got %v", doc.LevelPixel)
	}
	if doc.Timestamp != "2025-03-14T09:26:53.589Z" {
		t.Fatalf("unexpected timestamp %q", doc.Timestamp)
	}
}

func TestDocumentTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := time.Date(2025, 1, 1, 1, 0, 0, 0, loc)
	doc := NewDocument(0, 0, 0, at)
	if doc.Timestamp != "2025-01-01T00:00:00.000Z" {
		t.Fatalf("expected UTC rendering got %q", doc.Timestamp)
	}
}

func TestDocumentJSONFields(t *testing.T) {
	doc := NewDocument(123.45, 4366.4, 142, time.Unix(0, 0))
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"timestamp", "level_cm", "level_liter", "level_pixel"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("record missing %q: %s", key, data)
		}
	}
	// rounded values stay numeric in the emitted record
	if _, ok := raw["level_cm"].(float64); !ok {
		t.Fatalf("level_cm not numeric: %s", data)
	}
}
