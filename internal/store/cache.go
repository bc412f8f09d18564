package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StepName identifies a cached pipeline step.
type StepName string

const (
	StepIngest     StepName = "step1_ingest"
	StepScores     StepName = "step2_scores"
	StepAggregates StepName = "step3_aggregates"
	StepGraphs     StepName = "step4_graphs"
)

// exchangeDir holds remote scorer prompt/response pairs.
const exchangeDir = "scorer"

// ScoreExchange is one request to a remote scorer as it went over the wire.
type ScoreExchange struct {
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Texts     int       `json:"texts"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// StepDir returns the cache directory of a step.
func StepDir(cacheDir string, step StepName) string {
	return filepath.Join(cacheDir, string(step))
}

// ExchangeDir returns the directory of saved scorer exchanges.
func ExchangeDir(cacheDir string) string {
	return filepath.Join(cacheDir, exchangeDir)
}

// cacheFileName sorts chronologically; the suffix keeps concurrent writers apart.
func cacheFileName() string {
	return time.Now().Format("2006-01-02T15-04-05.000000") + "-" + uuid.NewString()[:8] + ".json"
}

func writeJSON(dir string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	path := filepath.Join(dir, cacheFileName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cache entry: %w", err)
	}
	return path, nil
}

// jsonFiles lists the cache entries of dir, oldest first.
func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// SaveStepOutput writes data as the newest output of step and returns its path.
func SaveStepOutput[T any](cacheDir string, step StepName, data T) (string, error) {
	return writeJSON(StepDir(cacheDir, step), data)
}

// SaveScoreExchange records a remote scorer request.
func SaveScoreExchange(cacheDir string, ex ScoreExchange) (string, error) {
	return writeJSON(ExchangeDir(cacheDir), ex)
}

// LoadStepOutput decodes one cache entry.
func LoadStepOutput[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("failed to read step output: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal step output: %w", err)
	}
	return out, nil
}

// LoadLatestStepOutput decodes the newest output of step along with its path.
func LoadLatestStepOutput[T any](cacheDir string, step StepName) (T, string, error) {
	var zero T
	path, err := LatestStepFile(cacheDir, step)
	if err != nil {
		return zero, "", err
	}
	out, err := LoadStepOutput[T](path)
	if err != nil {
		return zero, "", err
	}
	return out, path, nil
}

// LatestStepFile returns the path of the newest output of step.
func LatestStepFile(cacheDir string, step StepName) (string, error) {
	dir := StepDir(cacheDir, step)
	names, err := jsonFiles(dir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no cached output for step %s", step)
	}
	return filepath.Join(dir, names[len(names)-1]), nil
}

// PruneStepOutputs removes all but the newest keep outputs of step and
// reports how many were removed.
func PruneStepOutputs(cacheDir string, step StepName, keep int) (int, error) {
	dir := StepDir(cacheDir, step)
	names, err := jsonFiles(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for _, name := range names[:max(len(names)-keep, 0)] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
