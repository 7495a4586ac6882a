package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// AttrOf returns the value of the named attribute on n.
// It does not lock and is meant for detached trees such as parsed fragments.
func AttrOf(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or adds an attribute on n.
func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// removeAttr deletes an attribute from n. It reports whether it was present.
func removeAttr(n *html.Node, name string) bool {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of n. The copy is detached.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Walk visits n and its descendants in document order.
// Returning false from fn skips the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	var b strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

// FindByID returns the first element under root with the given id.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode {
			if v, ok := AttrOf(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// isAncestor reports whether a is an inclusive ancestor of n.
func isAncestor(a, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == a {
			return true
		}
	}
	return false
}
