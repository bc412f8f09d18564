// Package annotations reads the optional date-keyed notes file shown next
// to the daily report (one "YYYY-MM-DD note" per line).
package annotations

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Entry is a note attached to a date
type Entry struct {
	Date types.Date `json:"date"`
	Note string     `json:"note"`
}

// File is the content of an annotations file. Raw is kept verbatim for
// collaborators that print it as-is; lines without a leading date end up
// in Other.
type File struct {
	Raw     string   `json:"raw"`
	Entries []Entry  `json:"entries,omitempty"`
	Other   []string `json:"other,omitempty"`
}

// Load reads an annotations file. A missing file is returned as an error
// satisfying os.IsNotExist so callers can treat it as optional.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations %s: %w", path, err)
	}
	return file, nil
}

// Parse reads annotations from r.
func Parse(r io.Reader) (*File, error) {
	var raw strings.Builder
	file := &File{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		raw.WriteString(line)
		raw.WriteByte('\n')

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if entry, ok := parseLine(line); ok {
			file.Entries = append(file.Entries, entry)
			continue
		}
		file.Other = append(file.Other, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	file.Raw = raw.String()
	return file, nil
}

func parseLine(line string) (Entry, bool) {
	head, note, _ := strings.Cut(line, " ")
	d, err := types.ParseDate(strings.TrimSuffix(head, ":"))
	if err != nil {
		return Entry{}, false
	}
	return Entry{Date: d, Note: strings.TrimSpace(note)}, true
}

// ForDate returns the notes of a date, in file order.
func (f *File) ForDate(d types.Date) []string {
	if f == nil {
		return nil
	}
	var notes []string
	for _, e := range f.Entries {
		if e.Date == d {
			notes = append(notes, e.Note)
		}
	}
	return notes
}
