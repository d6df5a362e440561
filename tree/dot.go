package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/awalterschulze/gographviz"
)

const dotGraphName = "G"

/*
WriteDOT writes the tree to w as a Graphviz digraph. Every node is labeled
with its handle, its split (for decision nodes), the number of rows and
Gini impurity at growth time and its predicted class. Edges to right children
are labeled "yes" and edges to left children "no".
*/
func (t *Tree) WriteDOT(w io.Writer) error {
	graphAst, err := gographviz.Parse([]byte(`digraph G{}`))
	if err != nil {
		return err
	}
	graph := gographviz.NewGraph()
	err = gographviz.Analyse(graphAst, graph)
	if err != nil {
		return err
	}
	for i, n := range t.nodes {
		lines := []string{fmt.Sprintf("id = %d", i)}
		if n.Split != nil {
			lines = append(lines, escapeHTML(n.Split.Describe(t.features)))
		}
		lines = append(lines,
			fmt.Sprintf("gini = %.4f", n.Impurity),
			fmt.Sprintf("samples = %d", n.Weight),
			fmt.Sprintf("class = %s", escapeHTML(t.ClassName(n.Label))),
		)
		attrs := map[string]string{"label": fmt.Sprintf("<%s>", strings.Join(lines, "<br/>"))}
		if n.Split == nil {
			attrs["shape"] = "box"
		}
		err = graph.AddNode(dotGraphName, fmt.Sprintf("%d", i), attrs)
		if err != nil {
			return err
		}
	}
	for i, n := range t.nodes {
		if n.Split == nil {
			continue
		}
		err = graph.AddEdge(fmt.Sprintf("%d", i), fmt.Sprintf("%d", n.Left), true, map[string]string{"label": "no"})
		if err != nil {
			return err
		}
		err = graph.AddEdge(fmt.Sprintf("%d", i), fmt.Sprintf("%d", n.Right), true, map[string]string{"label": "yes"})
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, graph.String())
	return err
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
