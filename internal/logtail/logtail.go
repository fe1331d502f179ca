package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A maxLines
// of zero or less returns the whole file. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time      string // "2006/01/02 15:04:05", empty when absent
	Component string // leading "name:" of the message, e.g. "tracker"
	Message   string
	Warning   bool // the message reports a failure
}

// Parse splits a line written by a log.Logger with log.LstdFlags. Lines in
// any other shape come back whole in Message.
func Parse(line string) Entry {
	var e Entry
	rest := line
	if len(rest) >= 19 && rest[4] == '/' && rest[7] == '/' && rest[10] == ' ' && rest[13] == ':' {
		e.Time = rest[:19]
		rest = strings.TrimLeft(rest[19:], " ")
	}
	if i := strings.Index(rest, ": "); i > 0 && !strings.ContainsAny(rest[:i], " \t") {
		e.Component = rest[:i]
		rest = rest[i+2:]
	}
	e.Message = rest
	lower := strings.ToLower(rest)
	for _, marker := range warningMarkers {
		if strings.Contains(lower, marker) {
			e.Warning = true
			break
		}
	}
	return e
}

var warningMarkers = []string{"failed", "rejected", "unavailable", "error"}
