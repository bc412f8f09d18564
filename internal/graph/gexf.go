package graph

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

const (
	gexfNamespace = "http://gexf.net/1.3"
	gexfVersion   = "1.3"
	creator       = "sentigraph"
)

// Node attributes are keyed by name, in schema order
const (
	attrID        = "id"
	attrUser      = "user"
	attrText      = "text"
	attrSentiment = "sentiment"
	attrInDegree  = "in_degree"
	attrOutDegree = "out_degree"
	attrSharing   = "sharing"
)

var nodeAttributes = []gexfAttribute{
	{ID: attrID, Title: attrID, Type: "string"},
	{ID: attrUser, Title: attrUser, Type: "string"},
	{ID: attrText, Title: attrText, Type: "string"},
	{ID: attrSentiment, Title: attrSentiment, Type: "double"},
	{ID: attrInDegree, Title: attrInDegree, Type: "integer"},
	{ID: attrOutDegree, Title: attrOutDegree, Type: "integer"},
	{ID: attrSharing, Title: attrSharing, Type: "double"},
}

type gexfDocument struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Meta    gexfMeta  `xml:"meta"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfMeta struct {
	LastModified string `xml:"lastmodifieddate,attr"`
	Creator      string `xml:"creator"`
	Description  string `xml:"description"`
}

type gexfGraph struct {
	Mode            string         `xml:"mode,attr"`
	DefaultEdgeType string         `xml:"defaultedgetype,attr"`
	Attributes      gexfAttributes `xml:"attributes"`
	Nodes           []gexfNode     `xml:"nodes>node"`
	Edges           []gexfEdge     `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class      string          `xml:"class,attr"`
	Attributes []gexfAttribute `xml:"attribute"`
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfNode struct {
	ID        string          `xml:"id,attr"`
	Label     string          `xml:"label,attr"`
	AttValues []gexfAttrValue `xml:"attvalues>attvalue"`
}

type gexfAttrValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfEdge struct {
	ID     string `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

// Encode writes g as a static, directed GEXF 1.3 document.
func Encode(w io.Writer, g Graph) error {
	doc := gexfDocument{
		XMLNS:   gexfNamespace,
		Version: gexfVersion,
		Meta: gexfMeta{
			LastModified: g.Date.String(),
			Creator:      creator,
			Description:  fmt.Sprintf("Quote graph for %s", g.Date),
		},
		Graph: gexfGraph{
			Mode:            "static",
			DefaultEdgeType: "directed",
			Attributes:      gexfAttributes{Class: "node", Attributes: nodeAttributes},
			Nodes:           make([]gexfNode, 0, len(g.Nodes)),
			Edges:           make([]gexfEdge, 0, len(g.Edges)),
		},
	}

	for _, n := range g.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, encodeNode(n))
	}
	for _, e := range g.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge(e))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode graph %s: %w", g.Date, err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// encodeNode writes user and text for every node; the id and the scored
// attributes only exist on primary nodes.
func encodeNode(n Node) gexfNode {
	if n.Synthetic {
		return gexfNode{ID: n.ID, Label: n.ID, AttValues: []gexfAttrValue{
			{For: attrUser, Value: n.User},
			{For: attrText, Value: n.Text},
		}}
	}
	return gexfNode{ID: n.ID, Label: n.ID, AttValues: []gexfAttrValue{
		{For: attrID, Value: n.ID},
		{For: attrUser, Value: n.User},
		{For: attrText, Value: n.Text},
		{For: attrSentiment, Value: formatFloat(n.Sentiment)},
		{For: attrInDegree, Value: strconv.Itoa(n.InDegree)},
		{For: attrOutDegree, Value: strconv.Itoa(n.OutDegree)},
		{For: attrSharing, Value: formatFloat(n.Sharing)},
	}}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FileName returns the graph file name for a date.
func FileName(d types.Date) string {
	return fmt.Sprintf("GEXF_%s.gexf", d)
}

// WriteAll writes one GEXF file per graph into dir and returns the paths
// written.
func WriteAll(dir string, graphs []Graph) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph dir: %w", err)
	}

	paths := make([]string, 0, len(graphs))
	for _, g := range graphs {
		path := filepath.Join(dir, FileName(g.Date))
		if err := writeFile(path, g); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, g Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
