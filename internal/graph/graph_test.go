package graph

import (
	"bytes"
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

func quote(id, author string) *types.ReferencedRecord {
	return &types.ReferencedRecord{ID: id, Author: author, Text: "quoted " + id}
}

func testStore() *records.Store {
	b := records.NewBuilder()
	b.Add(types.Record{ID: "1", Date: "2021-02-15", Author: "ann", Text: "hello", Shares: 2, Favorites: 3, Sentiment: 0.4})
	b.Add(types.Record{ID: "2", Date: "2021-02-15", Author: "bob", Text: "look", Sentiment: -0.2, Referenced: quote("q1", "carl")})
	b.Add(types.Record{ID: "3", Date: "2021-02-15", Author: "dan", Text: "again", Shares: 1, Referenced: quote("q1", "carl")})
	b.Add(types.Record{ID: "4", Date: "2021-02-15", Author: "eve", Text: "other", Referenced: quote("q2", "fay")})
	b.Add(types.Record{ID: "5", Date: "2021-02-15", Author: "gus", Text: "self", Referenced: quote("1", "ann")})
	b.Add(types.Record{ID: "6", Date: "2021-02-16", Author: "ann", Text: "next day", Referenced: quote("q1", "carl")})
	return b.Freeze()
}

func TestBuild_Nodes(t *testing.T) {
	g := Build(testStore(), "2021-02-15")

	assert.Equal(t, types.Date("2021-02-15"), g.Date)
	require.Len(t, g.Nodes, 7)
	assert.Equal(t, 2, g.Synthetic())

	first := g.Nodes[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "ann", first.User)
	assert.Equal(t, 5, first.InDegree)
	assert.Equal(t, 0, first.OutDegree)
	assert.Equal(t, 6.0, first.Sharing)
	assert.Equal(t, 0.4, first.Sentiment)

	assert.Equal(t, 1, g.Nodes[1].OutDegree)

	q1 := g.Nodes[5]
	assert.Equal(t, "q1", q1.ID)
	assert.True(t, q1.Synthetic)
	assert.Equal(t, "carl", q1.User)
	assert.Equal(t, "quoted q1", q1.Text)
	assert.Equal(t, "q2", g.Nodes[6].ID)
}

// The synthetic count covers referenced ids that are not themselves primary
// records of the same day; a quote of a same-day record links to its
// primary node instead of adding a second node with that id.
func TestBuild_SyntheticCountMatchesDistinctReferences(t *testing.T) {
	b := records.NewBuilder()
	refs := []string{"a", "b", "a", "c", "b", "a"}
	for i, ref := range refs {
		b.Add(types.Record{ID: string(rune('m' + i)), Date: "2021-03-01", Referenced: quote(ref, "x")})
	}
	g := Build(b.Freeze(), "2021-03-01")

	assert.Equal(t, 3, g.Synthetic())
	assert.Len(t, g.Edges, len(refs))

	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		assert.False(t, ids[n.ID], "duplicate node %s", n.ID)
		ids[n.ID] = true
	}
}

func TestBuild_ReferenceToSameDayPrimary(t *testing.T) {
	b := records.NewBuilder()
	b.Add(types.Record{ID: "p", Date: "2021-03-01", Author: "ann", Text: "first"})
	b.Add(types.Record{ID: "r", Date: "2021-03-01", Author: "bob", Text: "quoting", Referenced: quote("p", "ann")})
	b.Add(types.Record{ID: "s", Date: "2021-03-01", Author: "cat", Text: "quoting", Referenced: quote("z", "dan")})
	g := Build(b.Freeze(), "2021-03-01")

	// distinct referenced ids {p, z}, of which only z is not a primary node
	assert.Equal(t, 1, g.Synthetic())
	require.Len(t, g.Nodes, 4)
	assert.False(t, g.Nodes[0].Synthetic)
	assert.Contains(t, g.Edges, Edge{ID: "r", Source: "r", Target: "p"})
}

func TestBuild_Edges(t *testing.T) {
	g := Build(testStore(), "2021-02-15")
	assert.Equal(t, []Edge{
		{ID: "2", Source: "2", Target: "q1"},
		{ID: "3", Source: "3", Target: "q1"},
		{ID: "4", Source: "4", Target: "q2"},
		{ID: "5", Source: "5", Target: "1"},
	}, g.Edges)
}

func TestBuild_UnknownDate(t *testing.T) {
	g := Build(testStore(), "1999-01-01")
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestBuildAll(t *testing.T) {
	store := testStore()
	graphs, err := BuildAll(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	assert.Equal(t, Build(store, "2021-02-15"), graphs[0])
	assert.Equal(t, types.Date("2021-02-16"), graphs[1].Date)
	assert.Equal(t, 1, graphs[1].Synthetic())
}

func TestBuildAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildAll(ctx, testStore())
	require.ErrorIs(t, err, context.Canceled)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Build(testStore(), "2021-02-15")))

	out := buf.String()
	assert.Contains(t, out, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, out, `xmlns="http://gexf.net/1.3"`)
	assert.Contains(t, out, `<graph mode="static" defaultedgetype="directed">`)
	assert.Contains(t, out, `<attribute id="id" title="id" type="string"></attribute>`)
	assert.Contains(t, out, `<attribute id="sentiment" title="sentiment" type="double"></attribute>`)
	assert.Contains(t, out, `<attvalue for="sentiment" value="0.4"></attvalue>`)
	assert.Contains(t, out, `<node id="q1" label="q1">`)
	assert.Contains(t, out, `<edge id="2" source="2" target="q1"></edge>`)

	var doc gexfDocument
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Graph.Nodes, 7)
	assert.Len(t, doc.Graph.Edges, 4)

	primary := doc.Graph.Nodes[0]
	assert.Equal(t, "1", primary.ID)
	assert.Equal(t, "1", primary.Label)
	require.Len(t, primary.AttValues, 7)
	assert.Equal(t, gexfAttrValue{For: "id", Value: "1"}, primary.AttValues[0])
	assert.Contains(t, primary.AttValues, gexfAttrValue{For: attrInDegree, Value: "5"})
	assert.Contains(t, primary.AttValues, gexfAttrValue{For: attrSharing, Value: "6"})

	synthetic := doc.Graph.Nodes[5]
	assert.Equal(t, []gexfAttrValue{
		{For: attrUser, Value: "carl"},
		{For: attrText, Value: "quoted q1"},
	}, synthetic.AttValues)
}

func TestEncode_EscapesText(t *testing.T) {
	b := records.NewBuilder()
	b.Add(types.Record{ID: "1", Date: "2021-02-15", Author: "a&b", Text: `<b>"bold"</b>`})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Build(b.Freeze(), "2021-02-15")))

	var doc gexfDocument
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc.Graph.Nodes[0].AttValues, gexfAttrValue{For: "text", Value: `<b>"bold"</b>`})
	assert.Contains(t, doc.Graph.Nodes[0].AttValues, gexfAttrValue{For: "user", Value: "a&b"})
}

func TestEncode_AttributesByName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Build(testStore(), "2021-02-15")))

	var doc gexfDocument
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))

	titles := make([]string, 0, len(doc.Graph.Attributes.Attributes))
	declared := make(map[string]bool)
	for _, a := range doc.Graph.Attributes.Attributes {
		assert.Equal(t, a.Title, a.ID)
		titles = append(titles, a.Title)
		declared[a.ID] = true
	}
	assert.Equal(t, []string{"id", "user", "text", "sentiment", "in_degree", "out_degree", "sharing"}, titles)

	for _, n := range doc.Graph.Nodes {
		for _, v := range n.AttValues {
			assert.True(t, declared[v.For], "node %s refers to undeclared attribute %q", n.ID, v.For)
		}
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "GEXF")
	graphs, err := BuildAll(context.Background(), testStore())
	require.NoError(t, err)

	paths, err := WriteAll(dir, graphs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "GEXF_2021-02-15.gexf"),
		filepath.Join(dir, "GEXF_2021-02-16.gexf"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `<edge id="6" source="6" target="q1"></edge>`)
}
