// Package translation parses the external translation text format: one
// string per line, blank lines and lines starting with "#" or "@"
// ignored as comments/directives, and the first and last character of
// each remaining line stripped as quoting.
package translation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads a translation file from path and returns its lines in
// order, suitable for image.Image.ReplaceTranslations.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening translation file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the translation format from r.
func Parse(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "@") {
			continue
		}
		if len(trimmed) < 2 {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, trimmed[1:len(trimmed)-1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading translation file: %w", err)
	}
	return lines, nil
}
