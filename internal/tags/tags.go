// Package tags counts hashtags for the word-cloud renderer.
package tags

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ibeckermayer/sentigraph/internal/records"
)

// Count is how often a hashtag was used. Tags that differ only in case are
// counted together under the first spelling seen.
type Count struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Counts returns tag frequencies over the store, most used first; ties are
// broken alphabetically.
func Counts(store *records.Store) []Count {
	index := make(map[string]int)
	var counts []Count

	for _, r := range store.All() {
		for _, tag := range r.Tags {
			tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if i, ok := index[key]; ok {
				counts[i].Count++
				continue
			}
			index[key] = len(counts)
			counts = append(counts, Count{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return strings.ToLower(counts[i].Tag) < strings.ToLower(counts[j].Tag)
	})
	return counts
}

// Top returns at most n of the most used tags.
func Top(counts []Count, n int) []Count {
	if n < 0 || len(counts) <= n {
		return counts
	}
	return counts[:n]
}

// Write saves counts as indented JSON.
func Write(path string, counts []Count) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tags dir: %w", err)
	}
	if counts == nil {
		counts = []Count{}
	}
	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
