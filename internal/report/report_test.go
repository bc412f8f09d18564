package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/sentigraph/internal/annotations"
	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/stats"
	"github.com/ibeckermayer/sentigraph/internal/tags"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

func sampleResult() stats.Result {
	return stats.Result{
		ExcludeNeutral: true,
		Days: []types.DailyAggregate{
			{Date: "2021-02-15", Mean: 0.06666, StdDev: 0.41, WeightedMean: 0.66666, WeightedStdDev: 0.2, Count: 3},
			{Date: "2021-02-17", Mean: -0.1, StdDev: 0.3, WeightedMean: -0.0004, WeightedStdDev: 0.1, Count: 2},
		},
		Empty:  []*stats.EmptyPartitionError{{Date: "2021-02-16", Total: 4}},
		Global: types.Correlation{AvgInfluence: 12.34567, Covariance: -0.01234, Correlation: 0.5, Count: 5, Defined: true},
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.0666666, "0.067"},
		{0.66666, "0.667"},
		{-0.0004, "0.000"},
		{-0.1234, "-0.123"},
		{2, "2.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in))
	}
}

func TestDailyRows(t *testing.T) {
	rows := DailyRows(sampleResult())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2021-02-15", "0.067", "0.410", "0.667", "0.200"}, rows[0])
	assert.Equal(t, []string{"2021-02-17", "-0.100", "0.300", "0.000", "0.100"}, rows[1])
	assert.Equal(t, "average", rows[2][0])
	assert.Equal(t, "-0.017", rows[2][1])
}

func TestGlobalRow(t *testing.T) {
	c := sampleResult().Global
	assert.Equal(t, []string{"12.346", "-0.012", "0.500"}, GlobalRow(c))

	c.Defined = false
	assert.Equal(t, Undefined, GlobalRow(c)[2])
}

func TestWriteTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTerminal(&buf, Data{Result: sampleResult(), GraphFiles: []string{"a", "b"}}))

	out := buf.String()
	for _, want := range []string{
		"Weighted Std Dev", "2021-02-15", "0.067", "average",
		"Average Influence", "12.346", "2021-02-16", "excluded", "2 graph files",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteTerminal_Notes(t *testing.T) {
	notes, err := annotations.Parse(strings.NewReader("2021-02-17 budget vote\n2021-02-16 no records that day\nloose note\n2021-02-15: sworn in\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTerminal(&buf, Data{Result: sampleResult(), Annotations: notes}))

	out := buf.String()
	assert.Contains(t, out, "Notes")
	first := strings.Index(out, "2021-02-15  sworn in")
	second := strings.Index(out, "2021-02-17  budget vote")
	require.NotEqual(t, -1, first)
	require.NotEqual(t, -1, second)
	assert.Less(t, first, second)
	assert.NotContains(t, out, "no records that day")
	assert.NotContains(t, out, "loose note")
}

func TestWriteTerminal_Undefined(t *testing.T) {
	res := stats.Result{Global: types.Correlation{}}
	var buf bytes.Buffer
	require.NoError(t, WriteTerminal(&buf, Data{Result: res}))
	assert.Contains(t, buf.String(), Undefined)
	assert.Contains(t, buf.String(), "included")
}

func TestHTMLBuilder(t *testing.T) {
	b, err := NewHTML(2)
	require.NoError(t, err)

	notes, err := annotations.Parse(strings.NewReader("2021-02-15 <b>vote</b>\nloose note\n"))
	require.NoError(t, err)

	d := Data{
		RunID:       "run-1",
		GeneratedAt: time.Date(2021, 2, 18, 9, 30, 0, 0, time.UTC),
		Sources:     []string{"(RAW)a.json"},
		Result:      sampleResult(),
		Ingest:      &records.IngestReport{Read: 10, Replaced: 2},
		Records:     8,
		Annotations: notes,
		Tags:        []tags.Count{{Tag: "Draghi", Count: 5}, {Tag: "Senato", Count: 2}, {Tag: "Camera", Count: 1}},
		GraphFiles:  []string{"g1"},
	}
	page, err := b.Build(d)
	require.NoError(t, err)

	out := string(page)
	assert.Contains(t, out, "<td>0.067</td>")
	assert.Contains(t, out, `<tr class="average"><td>average</td>`)
	assert.Contains(t, out, "<td>0.500</td>")
	assert.Contains(t, out, "No eligible records on: 2021-02-16")
	assert.Contains(t, out, "&lt;b&gt;vote&lt;/b&gt;")
	assert.Contains(t, out, "loose note")
	assert.Contains(t, out, "#Senato 2")
	assert.NotContains(t, out, "Camera")
	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "8 records (10 read, 2 replaced, 0 skipped)")

	path := filepath.Join(t.TempDir(), "out", "report.html")
	require.NoError(t, b.Write(path, d))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, page, written)
}
