package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ScoreResult is the JSON shape a model must answer with, one per text
type ScoreResult struct {
	Index    int     `json:"index"`
	Compound float64 `json:"compound"`
}

// buildPrompt constructs the LLM prompt for scoring a batch of texts
func buildPrompt(texts []string) string {
	var sb strings.Builder

	sb.WriteString("You are a sentiment analyzer for short social media posts.\n\n")
	sb.WriteString("For each post below, estimate positive, negative and neutral sentiment and combine them into a single ")
	sb.WriteString("compound score between -1.0 (most negative) and 1.0 (most positive). ")
	sb.WriteString("Use exactly 0.0 when the post carries no clear sentiment.\n\n")

	sb.WriteString("## Posts\n\n")
	for i, text := range texts {
		sb.WriteString(fmt.Sprintf("### Post %d\n%s\n\n", i, text))
	}

	sb.WriteString("IMPORTANT: Respond with ONLY a valid JSON array. No markdown, no code blocks, no explanation - just the raw JSON starting with [ and ending with ].\n\n")
	sb.WriteString("Example structure:\n")
	sb.WriteString(`[{"index": 0, "compound": 0.42}, {"index": 1, "compound": 0.0}]`)
	sb.WriteString("\n")

	return sb.String()
}

var (
	codeBlockRe = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(\[.*?\])\s*\n?` + "```")
	rawArrayRe  = regexp.MustCompile(`(?s)(\[.*\])`)
)

// extractJSON pulls the JSON array out of a model answer, handling markdown code blocks
func extractJSON(text string) string {
	if m := codeBlockRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	if m := rawArrayRe.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return text
}

// ParseScoreResponse maps a model answer onto n scores, by index.
// Every index in [0, n) must be answered exactly once.
func ParseScoreResponse(text string, n int) ([]float64, error) {
	var results []ScoreResult
	if err := json.Unmarshal([]byte(extractJSON(text)), &results); err != nil {
		return nil, fmt.Errorf("failed to parse score JSON: %w (response was: %.500s)", err, text)
	}

	scores := make([]float64, n)
	seen := make([]bool, n)
	for _, r := range results {
		if r.Index < 0 || r.Index >= n {
			return nil, fmt.Errorf("score index %d out of range [0, %d)", r.Index, n)
		}
		if seen[r.Index] {
			return nil, fmt.Errorf("score index %d answered twice", r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.Compound
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("no score for post %d", i)
		}
	}
	return scores, nil
}
