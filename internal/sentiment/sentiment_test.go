package sentiment

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/sentigraph/internal/config"
	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/sentiment/providers"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

// --- Fakes ---

type mapScorer struct {
	mu     sync.Mutex
	scores map[string]float64
	calls  map[string]int
	err    error
}

func (m *mapScorer) Score(ctx context.Context, text string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[text]++
	if m.err != nil {
		return 0, m.err
	}
	return m.scores[text], nil
}

type batchScorer struct {
	mu      sync.Mutex
	batches [][]string
	short   bool
}

func (b *batchScorer) Score(ctx context.Context, text string) (float64, error) {
	return 0, errors.New("single scoring should not be used")
}

func (b *batchScorer) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	b.mu.Lock()
	b.batches = append(b.batches, texts)
	b.mu.Unlock()
	if b.short {
		return []float64{}, nil
	}
	out := make([]float64, len(texts))
	for i := range texts {
		out[i] = float64(len(texts[i])) / 10
	}
	return out, nil
}

func buildStore(recs ...types.Record) *records.Store {
	b := records.NewBuilder()
	for _, r := range recs {
		b.Add(r)
	}
	return b.Freeze()
}

// --- Tests ---

func TestAnnotate_ScoresPrimaryTextOnce(t *testing.T) {
	store := buildStore(
		types.Record{ID: "1", Date: "2021-02-15", Text: "good",
			Referenced: &types.ReferencedRecord{ID: "9", Text: "quoted text"}},
		types.Record{ID: "2", Date: "2021-02-14", Text: "bad"},
		types.Record{ID: "3", Date: "2021-02-15", Text: "meh"},
	)
	scorer := &mapScorer{scores: map[string]float64{"good": 0.6, "bad": -0.4, "quoted text": 0.9}}
	logger, _ := logrustest.NewNullLogger()

	scored, err := Annotate(context.Background(), store, scorer, 2, logger)
	require.NoError(t, err)

	r1, _ := scored.Get("1")
	r2, _ := scored.Get("2")
	r3, _ := scored.Get("3")
	assert.Equal(t, 0.6, r1.Sentiment)
	assert.Equal(t, -0.4, r2.Sentiment)
	assert.Equal(t, Neutral, r3.Sentiment)

	assert.Equal(t, map[string]int{"good": 1, "bad": 1, "meh": 1}, scorer.calls)

	orig, _ := store.Get("1")
	assert.Zero(t, orig.Sentiment, "input store must stay untouched")
}

func TestAnnotate_ClampsOutOfRange(t *testing.T) {
	store := buildStore(
		types.Record{ID: "1", Date: "2021-02-15", Text: "a"},
		types.Record{ID: "2", Date: "2021-02-15", Text: "b"},
	)
	scorer := &mapScorer{scores: map[string]float64{"a": 3, "b": -7}}
	logger, _ := logrustest.NewNullLogger()

	scored, err := Annotate(context.Background(), store, scorer, 0, logger)
	require.NoError(t, err)
	a, _ := scored.Get("1")
	b, _ := scored.Get("2")
	assert.Equal(t, 1.0, a.Sentiment)
	assert.Equal(t, -1.0, b.Sentiment)
}

func TestAnnotate_UsesBatchScorer(t *testing.T) {
	var recs []types.Record
	for i, text := range []string{"a", "bb", "ccc", "dddd", "eeeee"} {
		recs = append(recs, types.Record{ID: string(rune('a' + i)), Date: "2021-02-15", Text: text})
	}
	scorer := &batchScorer{}
	logger, _ := logrustest.NewNullLogger()

	scored, err := Annotate(context.Background(), buildStore(recs...), scorer, 2, logger)
	require.NoError(t, err)
	assert.Len(t, scorer.batches, 3)

	for _, r := range scored.All() {
		assert.InDelta(t, float64(len(r.Text))/10, r.Sentiment, 1e-12)
	}
}

func TestAnnotate_Errors(t *testing.T) {
	store := buildStore(types.Record{ID: "1", Date: "2021-02-15", Text: "a"})
	logger, _ := logrustest.NewNullLogger()

	_, err := Annotate(context.Background(), store, &mapScorer{err: errors.New("model down")}, 1, logger)
	require.ErrorContains(t, err, "model down")

	_, err = Annotate(context.Background(), store, &batchScorer{short: true}, 1, logger)
	require.ErrorContains(t, err, "0 scores for 1 texts")
}

func TestAnnotate_EmptyStore(t *testing.T) {
	logger, _ := logrustest.NewNullLogger()
	store := buildStore()
	scored, err := Annotate(context.Background(), store, &mapScorer{}, 10, logger)
	require.NoError(t, err)
	assert.Equal(t, 0, scored.Len())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.5, Clamp(0.5))
	assert.Equal(t, 1.0, Clamp(1.5))
	assert.Equal(t, -1.0, Clamp(-1.5))
	assert.Equal(t, Neutral, Clamp(math.NaN()))
}

func TestNew(t *testing.T) {
	s, err := New(config.AnalysisConfig{Scorer: config.ScorerVader}, "")
	require.NoError(t, err)
	assert.IsType(t, &providers.Vader{}, s)

	_, err = New(config.AnalysisConfig{Scorer: config.ScorerAnthropic}, "")
	require.ErrorContains(t, err, "api_key")

	s, err = New(config.AnalysisConfig{Scorer: config.ScorerAnthropic, APIKey: "k", Model: "m"}, "")
	require.NoError(t, err)
	assert.Implements(t, (*BatchScorer)(nil), s)

	_, err = New(config.AnalysisConfig{Scorer: "magic"}, "")
	require.Error(t, err)
}
