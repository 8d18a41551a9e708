package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Parse reads 3-line NORAD TLE format from r and returns the structurally
// valid element sets plus a count of dropped entries.
//
// Validation here is structural only: the name and both data lines must be
// non-empty, line 1 must start with "1 " and line 2 with "2 ". Checksums are
// not verified; deeper validation happens when the SGP4 model is initialized.
func Parse(r io.Reader, logger *slog.Logger) ([]ElementSet, int, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading TLE data: %w", err)
	}

	var sets []ElementSet
	var dropped int
	for i := 0; i+2 < len(lines); {
		name := strings.TrimSpace(lines[i])
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resync on the next line rather than skipping a full triplet:
			// a missing name line would otherwise shift every entry after it.
			logger.Warn("dropping malformed TLE entry", "line_index", i, "name", name)
			dropped++
			i++
			continue
		}

		if name == "" {
			logger.Warn("dropping TLE entry with empty name", "line_index", i)
			dropped++
			i += 3
			continue
		}

		sets = append(sets, ElementSet{Name: name, Line1: line1, Line2: line2})
		i += 3
	}

	return sets, dropped, nil
}
