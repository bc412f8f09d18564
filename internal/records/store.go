// Package records holds the deduplicated, date-ordered table of ingested posts.
package records

import (
	"fmt"
	"sort"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Builder accumulates records with last-write-wins semantics. It is not
// safe for concurrent use; ingestion is serial by contract.
type Builder struct {
	index map[string]int
	recs  []types.Record
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Add stores rec, fully replacing any earlier record with the same ID.
// The replaced record keeps its original position. Reports whether a
// record was replaced.
func (b *Builder) Add(rec types.Record) bool {
	if i, ok := b.index[rec.ID]; ok {
		b.recs[i] = rec
		return true
	}
	b.index[rec.ID] = len(b.recs)
	b.recs = append(b.recs, rec)
	return false
}

// Len returns the number of distinct records added so far.
func (b *Builder) Len() int { return len(b.recs) }

// Freeze returns an immutable Store. The builder may keep being used;
// later additions do not affect the returned Store.
func (b *Builder) Freeze() *Store {
	recs := make([]types.Record, len(b.recs))
	copy(recs, b.recs)
	return newStore(recs)
}

// Store is a frozen, read-only record table. All methods are safe for
// concurrent use.
type Store struct {
	recs   []types.Record
	byID   map[string]int
	byDate map[types.Date][]int
	dates  []types.Date
}

func newStore(recs []types.Record) *Store {
	s := &Store{
		recs:   recs,
		byID:   make(map[string]int, len(recs)),
		byDate: make(map[types.Date][]int),
	}
	for i, r := range recs {
		s.byID[r.ID] = i
		if _, ok := s.byDate[r.Date]; !ok {
			s.dates = append(s.dates, r.Date)
		}
		s.byDate[r.Date] = append(s.byDate[r.Date], i)
	}
	sort.Slice(s.dates, func(i, j int) bool { return s.dates[i] < s.dates[j] })
	return s
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.recs) }

// Get returns the record with the given ID.
func (s *Store) Get(id string) (types.Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return types.Record{}, false
	}
	return s.recs[i], true
}

// Dates returns the distinct dates in ascending order.
func (s *Store) Dates() []types.Date {
	out := make([]types.Date, len(s.dates))
	copy(out, s.dates)
	return out
}

// ByDate returns the records of day d in first-ingestion order.
func (s *Store) ByDate(d types.Date) []types.Record {
	idx := s.byDate[d]
	out := make([]types.Record, len(idx))
	for i, j := range idx {
		out[i] = s.recs[j]
	}
	return out
}

// All returns every record, grouped by ascending date.
func (s *Store) All() []types.Record {
	out := make([]types.Record, 0, len(s.recs))
	for _, d := range s.dates {
		for _, j := range s.byDate[d] {
			out = append(out, s.recs[j])
		}
	}
	return out
}

// WithSentiment returns a new Store whose records carry scores[i] for the
// i-th record of All(). The receiver is left untouched.
func (s *Store) WithSentiment(scores []float64) (*Store, error) {
	if len(scores) != len(s.recs) {
		return nil, fmt.Errorf("got %d scores for %d records", len(scores), len(s.recs))
	}

	recs := make([]types.Record, len(s.recs))
	copy(recs, s.recs)

	k := 0
	for _, d := range s.dates {
		for _, j := range s.byDate[d] {
			recs[j].Sentiment = scores[k]
			k++
		}
	}
	return newStore(recs), nil
}
