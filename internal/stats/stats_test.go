package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

type rec struct {
	date      types.Date
	score     float64
	influence int
}

func storeOf(rs ...rec) *records.Store {
	b := records.NewBuilder()
	for i, r := range rs {
		b.Add(types.Record{
			ID:        fmt.Sprint(i),
			Date:      r.date,
			Sentiment: r.score,
			Shares:    r.influence,
		})
	}
	return b.Freeze()
}

func TestDay_UnweightedMean(t *testing.T) {
	s := storeOf(
		rec{"2021-02-15", 0.5, 0},
		rec{"2021-02-15", -0.5, 0},
		rec{"2021-02-15", 0.2, 0},
	)
	res := Aggregate(s, true)
	require.Len(t, res.Days, 1)
	assert.InDelta(t, 0.0667, res.Days[0].Mean, 1e-4)
	assert.Equal(t, 3, res.Days[0].Count)
}

func TestDay_WeightedMean(t *testing.T) {
	// weight = influence + 1
	s := storeOf(
		rec{"2021-02-15", 1.0, 1},
		rec{"2021-02-15", 0.0, 0},
	)
	res := Aggregate(s, false)
	require.Len(t, res.Days, 1)
	assert.InDelta(t, 2.0/3.0, res.Days[0].WeightedMean, 1e-12)
	assert.InDelta(t, 0.667, res.Days[0].WeightedMean, 1e-3)
}

func TestDay_DeviationFormulas(t *testing.T) {
	recs := []types.Record{
		{ID: "a", Sentiment: 1.0, Shares: 1},  // w = 2
		{ID: "b", Sentiment: -0.5, Shares: 0}, // w = 1
	}
	agg, err := Day("2021-02-15", recs)
	require.Nil(t, err)

	mean := 0.25
	assert.InDelta(t, math.Sqrt((0.75*0.75+0.75*0.75)/2), agg.StdDev, 1e-12)

	wmean := (1.0*2 - 0.5*1) / 3
	assert.InDelta(t, wmean, agg.WeightedMean, 1e-12)
	// Σ(score·w − wmean)² / Σw²
	want := math.Sqrt((math.Pow(2-wmean, 2) + math.Pow(-0.5-wmean, 2)) / (4 + 1))
	assert.InDelta(t, want, agg.WeightedStdDev, 1e-12)
	assert.InDelta(t, mean, agg.Mean, 1e-12)
}

func TestAggregate_NeutralExclusion(t *testing.T) {
	s := storeOf(
		rec{"2021-02-15", 0.6, 0},
		rec{"2021-02-15", 0.0, 5},
		rec{"2021-02-16", 0.0, 0},
		rec{"2021-02-16", 0.0, 1},
		rec{"2021-02-17", -0.2, 2},
	)

	kept := Aggregate(s, false)
	dropped := Aggregate(s, true)

	require.Len(t, kept.Days, 3)
	assert.Empty(t, kept.Empty)
	assert.Equal(t, 2, kept.Days[0].Count)
	assert.InDelta(t, 0.3, kept.Days[0].Mean, 1e-12)

	require.Len(t, dropped.Days, 2)
	assert.Equal(t, types.Date("2021-02-15"), dropped.Days[0].Date)
	assert.Equal(t, 1, dropped.Days[0].Count)
	assert.InDelta(t, 0.6, dropped.Days[0].Mean, 1e-12)
	assert.NotEqual(t, kept.Days[0].WeightedMean, dropped.Days[0].WeightedMean)
	assert.Equal(t, types.Date("2021-02-17"), dropped.Days[1].Date)

	require.Len(t, dropped.Empty, 1)
	assert.Equal(t, types.Date("2021-02-16"), dropped.Empty[0].Date)
	assert.Equal(t, 2, dropped.Empty[0].Total)
}

func TestDay_Empty(t *testing.T) {
	_, err := Day("2021-02-16", nil)
	require.NotNil(t, err)
	var target *EmptyPartitionError
	assert.True(t, errors.As(error(err), &target))
}

func TestGlobal_Covariance(t *testing.T) {
	s := storeOf(
		rec{"2021-02-15", 0.5, 4},
		rec{"2021-02-15", -0.5, 0},
		rec{"2021-02-16", 0.1, 2},
	)
	res := Aggregate(s, true)
	require.NoError(t, res.GlobalErr)

	avgInfluence := 2.0
	avgSentiment := (0.0 + 0.1) / 2 // mean of daily means
	xs := []float64{2, -2, 0}
	ys := []float64{0.5 - avgSentiment, -0.5 - avgSentiment, 0.1 - avgSentiment}
	var e, dx, dy float64
	for i := range xs {
		e += xs[i] * ys[i]
		dx += xs[i] * xs[i]
		dy += ys[i] * ys[i]
	}

	assert.True(t, res.Global.Defined)
	assert.Equal(t, 3, res.Global.Count)
	assert.InDelta(t, avgInfluence, res.Global.AvgInfluence, 1e-12)
	assert.InDelta(t, e/3, res.Global.Covariance, 1e-12)
	assert.InDelta(t, e/math.Sqrt(dx*dy), res.Global.Correlation, 1e-12)
}

func TestGlobal_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		recs []rec
	}{
		{"constant influence", []rec{{"2021-02-15", 0.5, 3}, {"2021-02-15", -0.5, 3}}},
		{"constant sentiment", []rec{{"2021-02-15", 0.5, 1}, {"2021-02-15", 0.5, 3}}},
		{"all neutral", []rec{{"2021-02-15", 0, 1}, {"2021-02-16", 0, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Aggregate(storeOf(tt.recs...), true)
			var degenerate *DegenerateDistributionError
			require.True(t, errors.As(res.GlobalErr, &degenerate))
			assert.False(t, res.Global.Defined)
			assert.False(t, math.IsNaN(res.Global.Correlation))
		})
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	s := randomStore(rand.New(rand.NewSource(7)), 400)

	first := Aggregate(s, true)
	second := Aggregate(s, true)
	parallel, err := AggregateParallel(context.Background(), s, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, parallel)
	for i := range first.Days {
		assert.Equal(t, math.Float64bits(first.Days[i].WeightedStdDev), math.Float64bits(parallel.Days[i].WeightedStdDev))
	}
}

func TestGlobal_CorrelationBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	checked := 0
	for trial := 0; trial < 200; trial++ {
		s := randomStore(rng, 2+rng.Intn(60))
		for _, exclude := range []bool{false, true} {
			res := Aggregate(s, exclude)
			if res.GlobalErr != nil {
				continue
			}

			var parts [][]types.Record
			for _, d := range s.Dates() {
				parts = append(parts, Eligible(s.ByDate(d), exclude))
			}
			var meanSum float64
			for _, d := range res.Days {
				meanSum += d.Mean
			}
			e, dx, dy := deviationSums(parts, res.Global.AvgInfluence, meanSum/float64(len(res.Days)))
			raw := pearson(e, dx, dy)

			// the unclamped ratio must already be in range, up to rounding
			assert.GreaterOrEqual(t, raw, -1-1e-9)
			assert.LessOrEqual(t, raw, 1+1e-9)
			assert.InDelta(t, raw, res.Global.Correlation, 1e-9)
			checked++
		}
	}
	assert.Greater(t, checked, 100)
}

func TestAverage(t *testing.T) {
	res := Result{Days: []types.DailyAggregate{
		{Mean: 0.2, StdDev: 0.1, WeightedMean: 0.4, WeightedStdDev: 0.3, Count: 2},
		{Mean: 0.4, StdDev: 0.3, WeightedMean: 0.0, WeightedStdDev: 0.1, Count: 3},
	}}
	avg := res.Average()
	assert.Equal(t, types.Date("average"), avg.Date)
	assert.InDelta(t, 0.3, avg.Mean, 1e-12)
	assert.InDelta(t, 0.2, avg.StdDev, 1e-12)
	assert.InDelta(t, 0.2, avg.WeightedMean, 1e-12)
	assert.InDelta(t, 0.2, avg.WeightedStdDev, 1e-12)
	assert.Equal(t, 5, avg.Count)

	assert.Zero(t, Result{}.Average().Mean)
}

func TestAggregateParallel_SingleDate(t *testing.T) {
	s := storeOf(rec{"2021-02-15", 0.5, 1}, rec{"2021-02-15", -0.25, 4}, rec{"2021-02-15", 0, 2})

	got, err := AggregateParallel(context.Background(), s, true)
	require.NoError(t, err)
	assert.Equal(t, Aggregate(s, true), got)
	require.Len(t, got.Days, 1)
	assert.Equal(t, 2, got.Days[0].Count)

	empty, err := AggregateParallel(context.Background(), records.NewBuilder().Freeze(), true)
	require.NoError(t, err)
	assert.Empty(t, empty.Days)
	assert.Error(t, empty.GlobalErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = AggregateParallel(ctx, s, true)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAggregateParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AggregateParallel(ctx, randomStore(rand.New(rand.NewSource(1)), 10), true)
	require.ErrorIs(t, err, context.Canceled)
}

func randomStore(rng *rand.Rand, n int) *records.Store {
	rs := make([]rec, n)
	for i := range rs {
		score := math.Round((rng.Float64()*2-1)*1e4) / 1e4
		if rng.Intn(5) == 0 {
			score = 0
		}
		rs[i] = rec{
			date:      types.Date(fmt.Sprintf("2021-02-%02d", 1+rng.Intn(10))),
			score:     score,
			influence: rng.Intn(500),
		}
	}
	return storeOf(rs...)
}
