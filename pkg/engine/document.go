package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document is a parsed XML document queried with XPath.
type Document struct {
	raw  string
	root *xmlquery.Node
}

// ParseDocument parses an XML document.
func ParseDocument(raw string) (*Document, error) {
	root, err := xmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if xmlquery.FindOne(root, "/*") == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return &Document{raw: raw, root: root}, nil
}

// XML returns the document source.
func (d *Document) XML() string {
	return d.raw
}

// Eval evaluates expr and returns the string value of each selected node,
// or the single value of a scalar expression.
func (d *Document) Eval(expr string) ([]string, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid XPath expression %q: %w", expr, err)
	}

	switch v := compiled.Evaluate(xmlquery.CreateXPathNavigator(d.root)).(type) {
	case *xpath.NodeIterator:
		var out []string
		for v.MoveNext() {
			out = append(out, v.Current().Value())
		}
		return out, nil
	case string:
		return []string{v}, nil
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, nil
	case bool:
		return []string{strconv.FormatBool(v)}, nil
	default:
		return nil, fmt.Errorf("unsupported result %T of XPath expression %q", v, expr)
	}
}

// First returns the first value selected by expr, or "" when nothing is.
func (d *Document) First(expr string) (string, error) {
	values, err := d.Eval(expr)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}

// Nodes returns the element nodes selected by expr.
func (d *Document) Nodes(expr string) ([]*xmlquery.Node, error) {
	nodes, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid XPath expression %q: %w", expr, err)
	}
	return nodes, nil
}

// XPathLiteral quotes s as an XPath string literal.
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
