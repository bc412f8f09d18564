// Package report renders run results: terminal tables and an HTML page.
package report

import (
	"math"
	"strconv"
	"time"

	"github.com/ibeckermayer/sentigraph/internal/annotations"
	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/stats"
	"github.com/ibeckermayer/sentigraph/internal/tags"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Undefined is printed in place of a correlation that cannot be computed.
const Undefined = "undefined"

// Column headers
var (
	DailyHeaders  = []string{"Date", "Mean", "Std Dev", "Weighted Mean", "Weighted Std Dev"}
	GlobalHeaders = []string{"Average Influence", "Covariance", "Correlation"}
)

// Round rounds half away from zero to 3 decimals.
func Round(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0 // no "-0.000"
	}
	return r
}

// Format renders v rounded to 3 decimals.
func Format(v float64) string {
	return strconv.FormatFloat(Round(v), 'f', 3, 64)
}

// DailyRows returns one row per reported day followed by the average row.
func DailyRows(res stats.Result) [][]string {
	rows := make([][]string, 0, len(res.Days)+1)
	for _, d := range res.Days {
		rows = append(rows, dailyRow(d))
	}
	return append(rows, dailyRow(res.Average()))
}

func dailyRow(d types.DailyAggregate) []string {
	return []string{
		d.Date.String(),
		Format(d.Mean),
		Format(d.StdDev),
		Format(d.WeightedMean),
		Format(d.WeightedStdDev),
	}
}

// GlobalRow returns the global correlation row.
func GlobalRow(c types.Correlation) []string {
	corr := Undefined
	if c.Defined {
		corr = Format(c.Correlation)
	}
	return []string{Format(c.AvgInfluence), Format(c.Covariance), corr}
}

// Data is everything a report shows about one run
type Data struct {
	RunID       string
	GeneratedAt time.Time
	Sources     []string
	Result      stats.Result
	Ingest      *records.IngestReport
	Records     int
	Neutral     int
	Annotations *annotations.File
	Tags        []tags.Count
	GraphFiles  []string
}

// SkippedDates returns the dates left out because every record was neutral.
func (d Data) SkippedDates() []types.Date {
	dates := make([]types.Date, len(d.Result.Empty))
	for i, e := range d.Result.Empty {
		dates[i] = e.Date
	}
	return dates
}
