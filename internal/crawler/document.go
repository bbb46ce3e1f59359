package crawler

import (
	"golang.org/x/net/html"
)

// NodeType is the kind of a Document node.
type NodeType uint8

const (
	// DocumentNode is the root of a Document.
	DocumentNode NodeType = iota

	// ElementNode is an HTML element.
	ElementNode

	// TextNode is character data.
	TextNode

	// OtherNode covers comments, doctypes and anything else.
	OtherNode
)

// Attribute is an element attribute.
type Attribute struct {
	Key string
	Val string
}

// Node is one entry of a Document arena.
type Node struct {
	// Type is the node kind.
	Type NodeType

	// Tag is the lowercase element name for ElementNode, empty otherwise.
	Tag string

	// Namespace is the element namespace ("" for HTML, "svg", "math").
	Namespace string

	// Attrs are the element attributes in source order.
	Attrs []Attribute

	// Children are indices of child nodes in document order.
	Children []int
}

// Attr returns the value of the attribute key and whether it is present.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Document is a parsed HTML tree stored as an arena of nodes.
// Index 0 is the root. A Document is never modified after it is built.
type Document struct {
	nodes []Node
}

// Root returns the index of the root node.
func (d *Document) Root() int {
	return 0
}

// Len returns the number of nodes.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Node returns the node at index i.
func (d *Document) Node(i int) *Node {
	return &d.nodes[i]
}

// NewDocument copies an x/net/html tree into an arena.
func NewDocument(root *html.Node) *Document {
	doc := &Document{nodes: make([]Node, 0, 64)}
	if root == nil {
		doc.nodes = append(doc.nodes, Node{Type: DocumentNode})
		return doc
	}

	type pending struct {
		src   *html.Node
		index int
	}

	doc.nodes = append(doc.nodes, convertNode(root))
	stack := []pending{{src: root, index: 0}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Children get their indices in order; they are pushed in reverse so
		// that the walk also proceeds in document order.
		start := len(stack)
		for c := top.src.FirstChild; c != nil; c = c.NextSibling {
			idx := len(doc.nodes)
			doc.nodes = append(doc.nodes, convertNode(c))
			doc.nodes[top.index].Children = append(doc.nodes[top.index].Children, idx)
			stack = append(stack, pending{src: c, index: idx})
		}
		for i, j := start, len(stack)-1; i < j; i, j = i+1, j-1 {
			stack[i], stack[j] = stack[j], stack[i]
		}
	}

	return doc
}

// convertNode copies the fields of n that the arena keeps.
func convertNode(n *html.Node) Node {
	node := Node{Type: OtherNode}
	switch n.Type {
	case html.DocumentNode:
		node.Type = DocumentNode
	case html.ElementNode:
		node.Type = ElementNode
		node.Tag = n.Data
		node.Namespace = n.Namespace
		if len(n.Attr) > 0 {
			node.Attrs = make([]Attribute, 0, len(n.Attr))
			for _, a := range n.Attr {
				key := a.Key
				if a.Namespace != "" {
					key = a.Namespace + ":" + a.Key
				}
				node.Attrs = append(node.Attrs, Attribute{Key: key, Val: a.Val})
			}
		}
	case html.TextNode:
		node.Type = TextNode
	}
	return node
}
