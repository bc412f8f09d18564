// Package stats computes per-day sentiment statistics and the global
// relation between influence and sentiment.
package stats

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

// EmptyPartitionError means no record of a day survived neutral exclusion.
// The day is left out of the aggregates.
type EmptyPartitionError struct {
	Date  types.Date
	Total int // records of the day before filtering
}

func (e *EmptyPartitionError) Error() string {
	return fmt.Sprintf("no eligible records on %s (%d excluded)", e.Date, e.Total)
}

// DegenerateDistributionError means influence or sentiment has no variance,
// so their correlation is undefined.
type DegenerateDistributionError struct {
	Count          int
	SumSqInfluence float64
	SumSqSentiment float64
}

func (e *DegenerateDistributionError) Error() string {
	if e.Count == 0 {
		return "correlation undefined: no eligible records"
	}
	return fmt.Sprintf("correlation undefined: zero variance (influence %g, sentiment %g over %d records)",
		e.SumSqInfluence, e.SumSqSentiment, e.Count)
}

// Result is the output of one aggregation.
type Result struct {
	ExcludeNeutral bool
	Days           []types.DailyAggregate // ascending by date, empty days omitted
	Empty          []*EmptyPartitionError
	Global         types.Correlation
	GlobalErr      error // *DegenerateDistributionError when Global.Defined is false
}

// Aggregate computes the statistics of every date in the store, serially.
func Aggregate(store *records.Store, excludeNeutral bool) Result {
	dates := store.Dates()
	parts := make([][]types.Record, len(dates))
	days := make([]dayResult, len(dates))
	for i, d := range dates {
		parts[i] = Eligible(store.ByDate(d), excludeNeutral)
		days[i] = computeDay(d, parts[i], len(store.ByDate(d)))
	}
	return assemble(excludeNeutral, parts, days)
}

// AggregateParallel is Aggregate with days computed concurrently. The
// result is bit-identical to Aggregate's. A store with a single date is
// aggregated inline.
func AggregateParallel(ctx context.Context, store *records.Store, excludeNeutral bool) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	dates := store.Dates()
	if len(dates) < 2 {
		return Aggregate(store, excludeNeutral), nil
	}
	parts := make([][]types.Record, len(dates))
	days := make([]dayResult, len(dates))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range dates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			all := store.ByDate(d)
			parts[i] = Eligible(all, excludeNeutral)
			days[i] = computeDay(d, parts[i], len(all))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return assemble(excludeNeutral, parts, days), nil
}

// Eligible returns the records that take part in statistics: all of them,
// or only the non-neutral ones when excludeNeutral is set.
func Eligible(recs []types.Record, excludeNeutral bool) []types.Record {
	if !excludeNeutral {
		return recs
	}
	out := make([]types.Record, 0, len(recs))
	for _, r := range recs {
		if r.Sentiment != 0.0 {
			out = append(out, r)
		}
	}
	return out
}

type dayResult struct {
	agg types.DailyAggregate
	err *EmptyPartitionError
}

func computeDay(d types.Date, recs []types.Record, total int) dayResult {
	agg, err := Day(d, recs)
	if err != nil {
		err.Total = total
		return dayResult{err: err}
	}
	return dayResult{agg: agg}
}

// Day computes the statistics of one day over already-filtered records.
//
// The weighted deviation is sqrt(Σ(score·w − wmean)² / Σw²). This is not
// the textbook weighted variance; published plots depend on it.
func Day(d types.Date, recs []types.Record) (types.DailyAggregate, *EmptyPartitionError) {
	n := len(recs)
	if n == 0 {
		return types.DailyAggregate{}, &EmptyPartitionError{Date: d}
	}

	var sum, weighted, totalWeight float64
	for _, r := range recs {
		w := r.Weight()
		sum += r.Sentiment
		weighted += r.Sentiment * w
		totalWeight += w
	}
	mean := sum / float64(n)
	wmean := weighted / totalWeight

	var sq, wsq, sqWeights float64
	for _, r := range recs {
		w := r.Weight()
		dev := r.Sentiment - mean
		sq += dev * dev
		wdev := r.Sentiment*w - wmean
		wsq += wdev * wdev
		sqWeights += w * w
	}

	return types.DailyAggregate{
		Date:           d,
		Mean:           mean,
		StdDev:         math.Sqrt(sq / float64(n)),
		WeightedMean:   wmean,
		WeightedStdDev: math.Sqrt(wsq / sqWeights),
		Count:          n,
	}, nil
}

// Global relates influence to sentiment over all eligible records.
// x = influence − mean influence, y = sentiment − mean of the daily means
// (each day counts once, whatever its size).
func Global(parts [][]types.Record, days []types.DailyAggregate) (types.Correlation, error) {
	var n int
	var influence float64
	for _, part := range parts {
		for _, r := range part {
			influence += float64(r.Influence())
			n++
		}
	}
	if n == 0 || len(days) == 0 {
		return types.Correlation{}, &DegenerateDistributionError{}
	}
	avgInfluence := influence / float64(n)

	var meanSum float64
	for _, d := range days {
		meanSum += d.Mean
	}
	avgSentiment := meanSum / float64(len(days))

	e, dx, dy := deviationSums(parts, avgInfluence, avgSentiment)

	corr := types.Correlation{
		AvgInfluence: avgInfluence,
		Covariance:   e / float64(n),
		Count:        n,
	}
	if dx == 0 || dy == 0 {
		return corr, &DegenerateDistributionError{Count: n, SumSqInfluence: dx, SumSqSentiment: dy}
	}

	// rounding can push |r| a hair past 1
	corr.Correlation = math.Max(-1, math.Min(1, pearson(e, dx, dy)))
	corr.Defined = true
	return corr, nil
}

// deviationSums returns Σxy, Σx² and Σy² for x = influence - avgInfluence
// and y = score - avgSentiment.
func deviationSums(parts [][]types.Record, avgInfluence, avgSentiment float64) (e, dx, dy float64) {
	for _, part := range parts {
		for _, r := range part {
			x := float64(r.Influence()) - avgInfluence
			y := r.Sentiment - avgSentiment
			e += x * y
			dx += x * x
			dy += y * y
		}
	}
	return e, dx, dy
}

func pearson(e, dx, dy float64) float64 {
	return e / math.Sqrt(dx*dy)
}

func assemble(excludeNeutral bool, parts [][]types.Record, days []dayResult) Result {
	res := Result{ExcludeNeutral: excludeNeutral}
	for _, d := range days {
		if d.err != nil {
			res.Empty = append(res.Empty, d.err)
			continue
		}
		res.Days = append(res.Days, d.agg)
	}
	res.Global, res.GlobalErr = Global(parts, res.Days)
	return res
}

// Average is the overall row of the daily report: each column averaged
// over the reported days.
func (r Result) Average() types.DailyAggregate {
	avg := types.DailyAggregate{Date: "average"}
	if len(r.Days) == 0 {
		return avg
	}
	for _, d := range r.Days {
		avg.Mean += d.Mean
		avg.StdDev += d.StdDev
		avg.WeightedMean += d.WeightedMean
		avg.WeightedStdDev += d.WeightedStdDev
		avg.Count += d.Count
	}
	n := float64(len(r.Days))
	avg.Mean /= n
	avg.StdDev /= n
	avg.WeightedMean /= n
	avg.WeightedStdDev /= n
	return avg
}
