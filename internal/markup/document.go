// Package markup models an HTML document as a tree of typed elements.
//
// Documents are parsed with tree-sitter and keep their source bytes. Transforms
// replace, remove or append elements; Render splices those edits into the
// original source so everything that was not edited is reproduced byte for byte.
package markup

import (
	"bytes"
	"errors"
	"sort"
	"strings"
)

// Attribute is a single element attribute. Value is entity-decoded.
type Attribute struct {
	Name     string
	Value    string
	HasValue bool
}

// Element is one element of the document tree.
type Element struct {
	Tag        string // lowercased tag name
	Attributes []Attribute
	// Text is the raw body of script and style elements.
	Text     string
	Children []*Element
	Parent   *Element

	start, end  uint32
	edited      bool
	replacement []byte
}

// Attr returns the value of the first attribute named name (case-insensitive).
func (e *Element) Attr(name string) (string, bool) {
	for _, attr := range e.Attributes {
		if strings.EqualFold(attr.Name, name) {
			return attr.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the element carries the named attribute.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Span returns the element's byte range in the source document.
func (e *Element) Span() (start, end int) {
	return int(e.start), int(e.end)
}

// Document is a parsed markup file plus the edits queued against it.
type Document struct {
	source   []byte
	root     *Element
	appended [][]byte
	hasError bool
}

var (
	ErrForeignElement = errors.New("element does not belong to this document")
	ErrAlreadyEdited  = errors.New("element has already been replaced or removed")
)

// Root returns the synthetic document root. Its Tag is empty.
func (d *Document) Root() *Element {
	return d.root
}

// HasErrors reports whether the parser had to recover from malformed markup.
func (d *Document) HasErrors() bool {
	return d.hasError
}

// Walk visits elements in document order. Returning false from fn skips the
// element's children.
func (d *Document) Walk(fn func(*Element) bool) {
	var walk func(*Element)
	walk = func(el *Element) {
		for _, child := range el.Children {
			if !fn(child) {
				continue
			}
			walk(child)
		}
	}
	walk(d.root)
}

// Select returns every element with the given tag in document order.
func (d *Document) Select(tag string) []*Element {
	tag = strings.ToLower(tag)
	var out []*Element
	d.Walk(func(el *Element) bool {
		if el.Tag == tag {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Replace swaps el for the placeholder in the rendered output.
func (d *Document) Replace(el *Element, p *Placeholder) error {
	return d.edit(el, []byte(p.Render()))
}

// Remove drops el from the rendered output.
func (d *Document) Remove(el *Element) error {
	return d.edit(el, nil)
}

// Append adds the placeholder at the end of the document.
func (d *Document) Append(p *Placeholder) {
	d.appended = append(d.appended, []byte(p.Render()))
}

func (d *Document) edit(el *Element, replacement []byte) error {
	if el == nil || !d.owns(el) {
		return ErrForeignElement
	}
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.edited {
			return ErrAlreadyEdited
		}
	}
	el.edited = true
	el.replacement = replacement
	return nil
}

func (d *Document) owns(el *Element) bool {
	cur := el
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur == d.root
}

// Render returns the source with all queued edits applied.
func (d *Document) Render() []byte {
	var edited []*Element
	var collect func(*Element)
	collect = func(el *Element) {
		for _, child := range el.Children {
			if child.edited {
				edited = append(edited, child)
				continue
			}
			collect(child)
		}
	}
	collect(d.root)
	sort.Slice(edited, func(i, j int) bool { return edited[i].start < edited[j].start })

	var buf bytes.Buffer
	buf.Grow(len(d.source))
	cursor := uint32(0)
	for _, el := range edited {
		buf.Write(d.source[cursor:el.start])
		buf.Write(el.replacement)
		cursor = el.end
	}
	buf.Write(d.source[cursor:])

	if len(d.appended) > 0 {
		if buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteByte('\n')
		}
		for _, block := range d.appended {
			buf.Write(block)
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes()
}
