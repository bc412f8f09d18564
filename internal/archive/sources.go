package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// DefaultPattern matches the raw dumps written by the fetcher, e.g.
// "(RAW) Tweets (keywords) by 2021-02-10 (...) #1000.json".
const DefaultPattern = `^\(RAW\).*\.json$`

// Source is one archive file
type Source struct {
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// Discover lists archive files in dir whose names match pattern, oldest first.
// Ingestion depends on this order: later files overwrite earlier ones.
func Discover(dir, pattern string) ([]Source, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid archive pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive dir: %w", err)
	}

	var sources []Source
	for _, entry := range entries {
		if entry.IsDir() || !re.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		sources = append(sources, Source{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	SortOldestFirst(sources)
	return sources, nil
}

// SortOldestFirst orders sources by modification time, ties broken by name.
func SortOldestFirst(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		if !sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].ModTime.Before(sources[j].ModTime)
		}
		return sources[i].Name < sources[j].Name
	})
}

// Select returns the candidates whose names are in chosen, keeping the
// candidates' order. Unknown names are ignored.
func Select(candidates []Source, chosen []string) []Source {
	want := make(map[string]bool, len(chosen))
	for _, name := range chosen {
		want[name] = true
	}

	selected := make([]Source, 0, len(chosen))
	for _, c := range candidates {
		if want[c.Name] || want[c.Path] {
			selected = append(selected, c)
		}
	}
	return selected
}

// Exclude returns the candidates whose names are not in excluded, keeping order.
func Exclude(candidates []Source, excluded []string) []Source {
	drop := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		drop[name] = true
	}

	kept := make([]Source, 0, len(candidates))
	for _, c := range candidates {
		if !drop[c.Name] && !drop[c.Path] {
			kept = append(kept, c)
		}
	}
	return kept
}

// Toggle flips the selection state of the 1-based position n. Out of range
// positions leave the state unchanged.
func Toggle(selected []bool, n int) []bool {
	out := append([]bool(nil), selected...)
	if n >= 1 && n <= len(out) {
		out[n-1] = !out[n-1]
	}
	return out
}

// SelectMask returns the candidates whose position in mask is true.
func SelectMask(candidates []Source, mask []bool) []Source {
	selected := make([]Source, 0, len(candidates))
	for i, c := range candidates {
		if i < len(mask) && mask[i] {
			selected = append(selected, c)
		}
	}
	return selected
}

// Names returns the file names of sources.
func Names(sources []Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}
