// Package graph builds the per-day quote graph: posts as nodes, an edge from
// each quoting post to the post it quotes.
package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Node is a post in a day's graph. Synthetic nodes stand for quoted posts
// and only carry User and Text.
type Node struct {
	ID        string
	User      string
	Text      string
	Synthetic bool
	Sentiment float64
	InDegree  int
	OutDegree int
	Sharing   float64
}

// Edge points from a quoting post to the quoted one. Its ID is the quoting
// post's ID.
type Edge struct {
	ID     string
	Source string
	Target string
}

// Graph is the quote graph of one calendar day
type Graph struct {
	Date  types.Date
	Nodes []Node
	Edges []Edge
}

// Synthetic returns the number of synthetic nodes.
func (g Graph) Synthetic() int {
	n := 0
	for _, node := range g.Nodes {
		if node.Synthetic {
			n++
		}
	}
	return n
}

// Build creates the graph of one date. Primary nodes follow the store's
// in-date order; synthetic nodes are appended in order of first reference.
// A quoted post that is itself a record of the same day is linked to
// directly instead of getting a synthetic node.
func Build(store *records.Store, date types.Date) Graph {
	recs := store.ByDate(date)
	g := Graph{
		Date:  date,
		Nodes: make([]Node, 0, len(recs)),
	}

	for _, r := range recs {
		node := Node{
			ID:        r.ID,
			User:      r.Author,
			Text:      r.Text,
			Sentiment: r.Sentiment,
			InDegree:  r.Influence(),
			Sharing:   r.Weight(),
		}
		if r.IsReference() {
			node.OutDegree = 1
		}
		g.Nodes = append(g.Nodes, node)
	}

	seen := make(map[string]bool)
	for _, r := range recs {
		if !r.IsReference() {
			continue
		}
		ref := r.Referenced
		g.Edges = append(g.Edges, Edge{ID: r.ID, Source: r.ID, Target: ref.ID})
		if seen[ref.ID] {
			continue
		}
		// a same-day primary record is the target node itself
		if target, ok := store.Get(ref.ID); ok && target.Date == date {
			continue
		}
		seen[ref.ID] = true
		g.Nodes = append(g.Nodes, Node{
			ID:        ref.ID,
			User:      ref.Author,
			Text:      ref.Text,
			Synthetic: true,
		})
	}

	return g
}

// BuildAll builds the graph of every date in the store concurrently. The
// result is ascending by date.
func BuildAll(ctx context.Context, store *records.Store) ([]Graph, error) {
	dates := store.Dates()
	graphs := make([]Graph, len(dates))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range dates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("failed to build graph for %s: %w", d, err)
			}
			graphs[i] = Build(store, d)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}
