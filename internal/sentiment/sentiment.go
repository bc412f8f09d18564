// Package sentiment attaches a compound sentiment score to every record.
package sentiment

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/sentigraph/internal/config"
	"github.com/ibeckermayer/sentigraph/internal/logging"
	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/sentiment/providers"
)

// Neutral is the score meaning "no clear sentiment". Records scored exactly
// Neutral are the ones dropped when neutral exclusion is on.
const Neutral = 0.0

// Scorer returns the compound sentiment of a text, in [-1, 1].
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// BatchScorer is implemented by scorers that are cheaper to call with many
// texts at once (remote models).
type BatchScorer interface {
	ScoreBatch(ctx context.Context, texts []string) ([]float64, error)
}

// New creates the scorer selected by the analysis config.
func New(cfg config.AnalysisConfig, cacheDir string) (Scorer, error) {
	switch cfg.Scorer {
	case config.ScorerVader, "":
		return providers.NewVader(), nil
	case config.ScorerAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("scorer %s requires analysis.api_key", cfg.Scorer)
		}
		return providers.NewAnthropic(cfg.APIKey, cfg.Model, cacheDir), nil
	default:
		return nil, fmt.Errorf("unknown sentiment scorer: %s", cfg.Scorer)
	}
}

// Clamp bounds a score to [-1, 1]. NaN is treated as neutral.
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return Neutral
	case score > 1:
		return 1
	case score < -1:
		return -1
	}
	return score
}

// Annotate scores each record's cleaned text exactly once and returns a new
// frozen store carrying the scores. Referenced texts are never scored.
// Batches are scored concurrently; results are placed by index, so the
// output does not depend on scheduling.
func Annotate(ctx context.Context, store *records.Store, scorer Scorer, batchSize int, log logging.Logger) (*records.Store, error) {
	log = logging.Component(log, "sentiment")
	recs := store.All()
	if len(recs) == 0 {
		return store, nil
	}
	if batchSize <= 0 {
		batchSize = len(recs)
	}

	texts := make([]string, len(recs))
	for i, r := range recs {
		texts[i] = r.Text
	}

	scores := make([]float64, len(recs))
	g, ctx := errgroup.WithContext(ctx)

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batchIdx := start / batchSize

		g.Go(func() error {
			batch, err := scoreBatch(ctx, scorer, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to score batch %d: %w", batchIdx, err)
			}
			for i, s := range batch {
				scores[start+i] = Clamp(s)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	neutral := 0
	for _, s := range scores {
		if s == Neutral {
			neutral++
		}
	}
	log.WithFields(logging.Fields{"records": len(scores), "neutral": neutral}).Info("Scored records")

	return store.WithSentiment(scores)
}

func scoreBatch(ctx context.Context, scorer Scorer, texts []string) ([]float64, error) {
	if bs, ok := scorer.(BatchScorer); ok {
		scores, err := bs.ScoreBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(scores) != len(texts) {
			return nil, fmt.Errorf("scorer returned %d scores for %d texts", len(scores), len(texts))
		}
		return scores, nil
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := scorer.Score(ctx, text)
		if err != nil {
			return nil, err
		}
		scores[i] = s
	}
	return scores, nil
}
