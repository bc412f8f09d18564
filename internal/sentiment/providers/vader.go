package providers

import (
	"context"
	"sync"

	"github.com/jonreiter/govader"
)

// Vader scores texts with the VADER lexicon. It runs offline.
type Vader struct {
	mu       sync.Mutex // the analyzer is not documented as safe for concurrent use
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader creates a VADER scorer.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound component of the VADER polarity scores.
func (v *Vader) Score(ctx context.Context, text string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.analyzer.PolarityScores(text).Compound, nil
}
