package parse

import (
	"strings"

	"golang.org/x/net/html"
)

// prev returns the node before n in document order, so ancestors are
// visited after their earlier siblings' subtrees.
func prev(n *html.Node) *html.Node {
	if n.PrevSibling != nil {
		n = n.PrevSibling
		for n.LastChild != nil {
			n = n.LastChild
		}
		return n
	}
	return n.Parent
}

func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// preceding walks backward from text to the nearest element accepted by
// match, staying inside root. An enclosing element whose text opens with the
// title is the title line itself and is walked past.
func preceding(text, root *html.Node, match func(*html.Node) bool) *html.Node {
	for n := prev(text); n != nil; n = prev(n) {
		if n.Type == html.ElementNode && match(n) {
			if !isAncestor(n, text) || !startsWithTitle(normalize(textOf(n))) {
				return n
			}
		}
		if n == root {
			break
		}
	}
	return nil
}

func ancestor(n *html.Node, tag string) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == tag {
			return p
		}
	}
	return nil
}

func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func firstElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == tag {
			return c
		}
		if found := firstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// textNodes lists the text nodes under root in document order, leaving out
// script and style content.
func textNodes(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			out = append(out, n)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for _, t := range textNodes(n) {
		b.WriteString(t.Data)
	}
	return b.String()
}

func tagMatcher(name string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == name }
}
