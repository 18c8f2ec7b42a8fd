package level

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const sampleDump = `# ImageMagick pixel enumeration: 1,5,255,gray
0,0: ( 5, 5, 5)  #050505  gray(5)
0,1: ( 150, 150, 150)  #969696  gray(150)
0,2: ( 0, 0, 0)  #000000  black
0,3: (12,12,12)
0,4: ( 255, 255, 255)  #FFFFFF  white
`

func TestParseProfile(t *testing.T) {
	profile, err := ParseProfile(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []int{5, 150, 0, 12, 255}
	if len(profile) != len(want) {
		t.Fatalf("expected %d samples got %d", len(want), len(profile))
	}
	for i, v := range want {
		if profile[i] != v {
			t.Fatalf("sample %d: expected %d got %d", i, v, profile[i])
		}
	}
}

func TestParseProfileFailsFast(t *testing.T) {
	dump := "# header\n0,0: ( 10, 10, 10)\ngarbage line\n0,2: ( 20, 20, 20)\n"
	_, err := ParseProfile(strings.NewReader(dump))
	if err == nil {
		t.Fatalf("expected parse error for garbage line")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError got %T: %v", err, err)
	}
	if pe.Line != 3 || pe.Text != "garbage line" {
		t.Fatalf("expected line 3 %q, got line %d %q", "garbage line", pe.Line, pe.Text)
	}
}

func TestWriteDumpRoundTrip(t *testing.T) {
	in := []int{5, 150, 150, 0, 0, 0, 50}
	var buf bytes.Buffer
	if err := WriteDump(&buf, in); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	out, err := ParseProfile(&buf)
	if err != nil {
		t.Fatalf("reparse dump: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: expected %d got %d", i, in[i], out[i])
		}
	}
}
