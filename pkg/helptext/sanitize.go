// Package helptext sanitizes the restricted markup subset allowed in
// description and help text fields before they are handed to the GUI.
package helptext

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

// policy admits the markup subset the form GUI renders: inline emphasis,
// code, lists, paragraphs, line breaks, and links.
var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "em", "strong", "code", "pre", "ul", "ol", "li", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireNoFollowOnLinks(true)
	return p
}()

// Sanitize strips everything outside the allowed markup subset from s.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(policy.Sanitize(s))
}

// SanitizeDocument returns a copy of doc with every free-text field run
// through the policy. Keys, types, constraints, and pass-through members are
// untouched.
func SanitizeDocument(doc schema.SchemaDocument) schema.SchemaDocument {
	out := doc.Clone()
	out.Description = Sanitize(out.Description)
	for _, key := range out.Sections.Keys() {
		sec, _ := out.Sections.Get(key)
		sec.Description = Sanitize(sec.Description)
		for _, name := range sec.Properties.Keys() {
			prop, _ := sec.Properties.Get(name)
			prop.Description = Sanitize(prop.Description)
			prop.HelpText = Sanitize(prop.HelpText)
		}
	}
	return out
}
