package level

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// A brightness dump is the textual per-pixel enumeration of the preprocessed
// strip: one comment header line followed by one line per scanned row in the
// form
//
//	0,<row>: ( <r>, <g>, <b>)
//
// The strip is grayscale after preprocessing, so the channels are equal and
// only the first one is read.
var pixelLineRE = regexp.MustCompile(`^\d+,\d+:\s*\(\s*(\d+),\s*\d+,\s*\d+\s*\)`)

// ParseProfile reads a brightness dump and returns the profile: one sample
// per data line, in line order. Comment lines (starting with '#', including
// the enumeration header) and blank lines are skipped; any other line that
// does not match the pixel pattern aborts the parse with a *ParseError,
// since a gap in the profile shifts every downstream pixel offset.
func ParseProfile(r io.Reader) ([]int, error) {
	var profile []int
	scan := bufio.NewScanner(r)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := pixelLineRE.FindStringSubmatch(line)
		if m == nil {
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		profile = append(profile, v)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read brightness dump: %w", err)
	}
	return profile, nil
}

// WriteDump writes a profile back out in the same enumeration format, so the
// native preprocessing path can be diffed against an external tool's output.
func WriteDump(w io.Writer, profile []int) error {
	if _, err := fmt.Fprintf(w, "# pixel enumeration: 1,%d,255,gray\n", len(profile)); err != nil {
		return err
	}
	for i, v := range profile {
		if _, err := fmt.Fprintf(w, "0,%d: ( %d, %d, %d)\n", i, v, v, v); err != nil {
			return err
		}
	}
	return nil
}
