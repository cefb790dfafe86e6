package schema

import "fmt"

// Sections is an insertion-ordered map from section key to Section. The zero
// value is empty and ready to use.
type Sections struct {
	keys  []string
	items map[string]*Section
}

// Len returns the number of sections.
func (s *Sections) Len() int {
	return len(s.keys)
}

// Keys returns the section keys in order. The slice is a copy.
func (s *Sections) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Get returns the section stored under key. The pointer aliases internal
// state; callers holding a shared document must go through Clone first.
func (s *Sections) Get(key string) (*Section, bool) {
	sec, ok := s.items[key]
	return sec, ok
}

// Index returns the ordinal position of key, or -1 when absent.
func (s *Sections) Index(key string) int {
	for i, k := range s.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// At returns the key and section at position i.
func (s *Sections) At(i int) (string, *Section) {
	key := s.keys[i]
	return key, s.items[key]
}

// Set stores sec under key, appending to the order when the key is new and
// keeping the existing position otherwise.
func (s *Sections) Set(key string, sec Section) {
	if s.items == nil {
		s.items = make(map[string]*Section)
	}
	if _, ok := s.items[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.items[key] = &sec
}

// Delete removes key and closes the gap in the order.
func (s *Sections) Delete(key string) {
	if _, ok := s.items[key]; !ok {
		return
	}
	delete(s.items, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Rename moves the entry from oldKey to newKey, retaining the original
// ordinal position. It fails when oldKey is absent or newKey already exists.
func (s *Sections) Rename(oldKey, newKey string) error {
	if oldKey == newKey {
		return nil
	}
	sec, ok := s.items[oldKey]
	if !ok {
		return fmt.Errorf("schema: section %q not found", oldKey)
	}
	if _, exists := s.items[newKey]; exists {
		return fmt.Errorf("schema: section %q already exists", newKey)
	}
	for i, k := range s.keys {
		if k == oldKey {
			s.keys[i] = newKey
			break
		}
	}
	delete(s.items, oldKey)
	s.items[newKey] = sec
	return nil
}

// Clone returns a deep copy.
func (s Sections) Clone() Sections {
	out := Sections{}
	for _, key := range s.keys {
		out.Set(key, s.items[key].Clone())
	}
	return out
}

// Properties is an insertion-ordered map from property name to Property.
type Properties struct {
	keys  []string
	items map[string]*Property
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	return len(p.keys)
}

// Keys returns the property names in order. The slice is a copy.
func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Get returns the property stored under name.
func (p *Properties) Get(name string) (*Property, bool) {
	prop, ok := p.items[name]
	return prop, ok
}

// Index returns the ordinal position of name, or -1 when absent.
func (p *Properties) Index(name string) int {
	for i, k := range p.keys {
		if k == name {
			return i
		}
	}
	return -1
}

// At returns the name and property at position i.
func (p *Properties) At(i int) (string, *Property) {
	name := p.keys[i]
	return name, p.items[name]
}

// Set stores prop under name, appending when new and keeping the existing
// position otherwise.
func (p *Properties) Set(name string, prop Property) {
	if p.items == nil {
		p.items = make(map[string]*Property)
	}
	if _, ok := p.items[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.items[name] = &prop
}

// Delete removes name and closes the gap in the order.
func (p *Properties) Delete(name string) {
	if _, ok := p.items[name]; !ok {
		return
	}
	delete(p.items, name)
	for i, k := range p.keys {
		if k == name {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Rename moves the entry from oldName to newName, retaining the original
// ordinal position.
func (p *Properties) Rename(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	prop, ok := p.items[oldName]
	if !ok {
		return fmt.Errorf("schema: property %q not found", oldName)
	}
	if _, exists := p.items[newName]; exists {
		return fmt.Errorf("schema: property %q already exists", newName)
	}
	for i, k := range p.keys {
		if k == oldName {
			p.keys[i] = newName
			break
		}
	}
	delete(p.items, oldName)
	p.items[newName] = prop
	return nil
}

// Clone returns a deep copy.
func (p Properties) Clone() Properties {
	out := Properties{}
	for _, name := range p.keys {
		out.Set(name, p.items[name].Clone())
	}
	return out
}
