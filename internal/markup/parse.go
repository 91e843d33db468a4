package markup

import (
	"context"
	"html"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tshtml "github.com/smacker/go-tree-sitter/html"
)

var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

var markupExtensions = map[string]bool{
	".html": true,
	".htm":  true,
}

// IsMarkup reports whether path names a markup file by extension.
func IsMarkup(path string) bool {
	return markupExtensions[strings.ToLower(filepath.Ext(path))]
}

// Parse builds a Document from HTML source. Malformed markup never fails the
// parse; the parser recovers and HasErrors reports that it did.
func Parse(ctx context.Context, content []byte) (*Document, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(tshtml.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	doc := &Document{
		source:   content,
		root:     &Element{start: 0, end: uint32(len(content))},
		hasError: root.HasError(),
	}
	buildChildren(root, content, doc.root)
	return doc, nil
}

func buildChildren(node *sitter.Node, content []byte, parent *Element) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "element", "script_element", "style_element":
			el, void := buildElement(child, content)
			el.Parent = parent
			parent.Children = append(parent.Children, el)
			if void {
				// Whatever the parser nested under a void tag belongs to its parent.
				buildChildren(child, content, parent)
				continue
			}
			buildChildren(child, content, el)
		case "ERROR":
			// Recovered fragments can still hold well-formed elements.
			buildChildren(child, content, parent)
		}
	}
}

// buildElement reports void when the element has no end tag and either names a
// void tag or was written self-closing. A void element ends with its tag, even when
// the parser let the node run on over the siblings that follow it.
func buildElement(node *sitter.Node, content []byte) (*Element, bool) {
	el := &Element{
		start: node.StartByte(),
		end:   node.EndByte(),
	}

	var tag *sitter.Node
	selfClosing, closed := false, false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "start_tag", "self_closing_tag":
			tag = child
			selfClosing = child.Type() == "self_closing_tag"
			el.Tag, el.Attributes = parseTag(child, content)
		case "end_tag":
			closed = true
		case "raw_text":
			el.Text = child.Content(content)
		}
	}

	if tag == nil || closed || !(selfClosing || voidElements[el.Tag]) {
		return el, false
	}
	el.end = tag.EndByte()
	return el, true
}

func parseTag(node *sitter.Node, content []byte) (string, []Attribute) {
	var tag string
	var attrs []Attribute
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "tag_name":
			tag = strings.ToLower(child.Content(content))
		case "attribute":
			attrs = append(attrs, parseAttribute(child, content))
		}
	}
	return tag, attrs
}

func parseAttribute(node *sitter.Node, content []byte) Attribute {
	var attr Attribute
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "attribute_name":
			attr.Name = strings.ToLower(child.Content(content))
		case "attribute_value":
			attr.Value = html.UnescapeString(child.Content(content))
			attr.HasValue = true
		case "quoted_attribute_value":
			attr.HasValue = true
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				if inner.Type() == "attribute_value" {
					attr.Value = html.UnescapeString(inner.Content(content))
				}
			}
		}
	}
	return attr
}
