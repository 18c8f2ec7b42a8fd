package level

import "testing"

func TestParseScaleLabels(t *testing.T) {
	// typical OCR output for a dipstick scale: labels plus noise digits
	text := "250\n225\n200\n 175\n150 7\n125\n100\n75\n50\n25\n0\n1234"
	labels := parseScaleLabels(text)
	want := []int{0, 25, 50, 75, 100, 125, 150, 175, 200, 225, 250}
	if len(labels) != len(want) {
		t.Fatalf("expected %d labels got %d: %v", len(want), len(labels), labels)
	}
	for i, v := range want {
		if labels[i] != v {
			t.Fatalf("label %d: expected %d got %d", i, v, labels[i])
		}
	}
}

func TestParseScaleLabelsDropsNoise(t *testing.T) {
	labels := parseScaleLabels("7 13 999 400 302")
	if len(labels) != 0 {
		t.Fatalf("expected no labels from noise, got %v", labels)
	}
}

func TestParseScaleLabelsDeduplicates(t *testing.T) {
	labels := parseScaleLabels("50 50 100 50")
	if len(labels) != 2 || labels[0] != 50 || labels[1] != 100 {
		t.Fatalf("expected [50 100] got %v", labels)
	}
}
