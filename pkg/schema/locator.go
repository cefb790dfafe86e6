package schema

// Locator is a stable address for a section or property inside a document,
// resolved against the current key set.
type Locator struct {
	SectionKey    string
	SectionIndex  int
	PropertyName  string
	PropertyIndex int
}

// IsProperty reports whether the locator addresses a property rather than a
// whole section.
func (l Locator) IsProperty() bool {
	return l.PropertyName != ""
}

// Path returns the slash-joined key path.
func (l Locator) Path() string {
	if l.IsProperty() {
		return l.SectionKey + "/" + l.PropertyName
	}
	return l.SectionKey
}

// AddressOf resolves sectionKey (and optionally propertyName, when non-empty)
// against doc. The boolean is false when the keys do not currently exist.
func AddressOf(doc SchemaDocument, sectionKey, propertyName string) (Locator, bool) {
	idx := doc.Sections.Index(sectionKey)
	if idx < 0 {
		return Locator{}, false
	}
	loc := Locator{SectionKey: sectionKey, SectionIndex: idx, PropertyIndex: -1}
	if propertyName == "" {
		return loc, true
	}
	sec, _ := doc.Sections.Get(sectionKey)
	pidx := sec.Properties.Index(propertyName)
	if pidx < 0 {
		return Locator{}, false
	}
	loc.PropertyName = propertyName
	loc.PropertyIndex = pidx
	return loc, true
}
