package markup

import (
	"html"
	"strings"
)

const (
	LinkPlaceholderTag   = "wcm-link"
	ScriptPlaceholderTag = "wcm-script"
	// IgnoreAttribute opts an element out of rewriting.
	IgnoreAttribute = "wcm-ignore"
)

// Placeholder is a synthetic element that stands in for a cross-package reference.
type Placeholder struct {
	Tag        string
	Attributes []Attribute
}

// LinkPlaceholder stands in for an import link into another package.
func LinkPlaceholder(rel, dependency, lookup string) *Placeholder {
	return &Placeholder{
		Tag: LinkPlaceholderTag,
		Attributes: []Attribute{
			{Name: "rel", Value: rel, HasValue: true},
			{Name: "for", Value: dependency, HasValue: true},
			{Name: "path", Value: lookup, HasValue: true},
		},
	}
}

// ScriptPlaceholder stands in for a script. dependency is empty for scripts that
// live in the same project.
func ScriptPlaceholder(dependency, path string) *Placeholder {
	p := &Placeholder{Tag: ScriptPlaceholderTag}
	if dependency != "" {
		p.Attributes = append(p.Attributes, Attribute{Name: "for", Value: dependency, HasValue: true})
	}
	p.Attributes = append(p.Attributes, Attribute{Name: "path", Value: path, HasValue: true})
	return p
}

// Attr returns the value of the named attribute.
func (p *Placeholder) Attr(name string) (string, bool) {
	for _, attr := range p.Attributes {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// Render serializes the placeholder as an element with an explicit end tag.
func (p *Placeholder) Render() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(p.Tag)
	for _, attr := range p.Attributes {
		b.WriteByte(' ')
		b.WriteString(attr.Name)
		if attr.HasValue {
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(attr.Value))
			b.WriteByte('"')
		}
	}
	b.WriteString("></")
	b.WriteString(p.Tag)
	b.WriteByte('>')
	return b.String()
}
