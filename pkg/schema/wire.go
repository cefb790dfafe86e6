package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	defsKeyModern = "$defs"
	defsKeyLegacy = "definitions"
)

// ParseDocument decodes the on-disk wire form into a SchemaDocument. Section
// order follows the allOf reference list when present, falling back to the
// definition order; members the model does not understand are retained as
// pass-through Extra entries.
func ParseDocument(data []byte) (SchemaDocument, error) {
	members, err := decodeMembers(data, "$")
	if err != nil {
		return SchemaDocument{}, err
	}

	doc := SchemaDocument{defsKey: defsKeyModern}
	var defsRaw, allOfRaw json.RawMessage

	for _, m := range members {
		switch m.Key {
		case "$schema":
			if doc.SchemaVersion, err = decodeString(m.Value, "$schema", "$"); err != nil {
				return SchemaDocument{}, err
			}
		case "title":
			if doc.Title, err = decodeString(m.Value, "title", "$"); err != nil {
				return SchemaDocument{}, err
			}
		case "description":
			if doc.Description, err = decodeString(m.Value, "description", "$"); err != nil {
				return SchemaDocument{}, err
			}
		case defsKeyModern:
			// "$defs" wins over an earlier "definitions" block; the loser
			// survives as a pass-through member.
			if defsRaw != nil {
				doc.Extra = append(doc.Extra, Member{Key: doc.defsKey, Value: defsRaw})
			}
			defsRaw = m.Value
			doc.defsKey = defsKeyModern
		case defsKeyLegacy:
			if defsRaw != nil {
				doc.Extra = append(doc.Extra, m)
				continue
			}
			defsRaw = m.Value
			doc.defsKey = defsKeyLegacy
		case "allOf":
			allOfRaw = m.Value
		default:
			doc.Extra = append(doc.Extra, m)
		}
	}

	if defsRaw == nil {
		return doc, nil
	}

	defs, err := decodeMembers(defsRaw, doc.defsKey)
	if err != nil {
		return SchemaDocument{}, err
	}
	parsed := make(map[string]Section, len(defs))
	order := make([]string, 0, len(defs))
	for _, def := range defs {
		sec, err := parseSection(def.Value, doc.defsKey+"/"+def.Key)
		if err != nil {
			return SchemaDocument{}, err
		}
		parsed[def.Key] = sec
		order = append(order, def.Key)
	}

	for _, key := range refOrder(allOfRaw, doc.defsKey) {
		if sec, ok := parsed[key]; ok {
			doc.Sections.Set(key, sec)
			delete(parsed, key)
		}
	}
	for _, key := range order {
		if sec, ok := parsed[key]; ok {
			doc.Sections.Set(key, sec)
		}
	}
	return doc, nil
}

// MarshalWire encodes the document back into its wire form, indented with two
// spaces. Pass-through members are written in their recorded order; the allOf
// reference list is regenerated from the current section order.
func (d SchemaDocument) MarshalWire() ([]byte, error) {
	w := newObjWriter()
	if d.SchemaVersion != "" {
		if err := w.field("$schema", d.SchemaVersion); err != nil {
			return nil, err
		}
	}
	if d.Title != "" {
		if err := w.field("title", d.Title); err != nil {
			return nil, err
		}
	}
	if d.Description != "" {
		if err := w.field("description", d.Description); err != nil {
			return nil, err
		}
	}
	for _, m := range d.Extra {
		w.rawField(m.Key, m.Value)
	}

	if d.Sections.Len() > 0 {
		defsKey := d.defsKey
		if defsKey == "" {
			defsKey = defsKeyModern
		}
		defs := newObjWriter()
		refs := bytes.NewBufferString("[")
		for i, key := range d.Sections.Keys() {
			sec, _ := d.Sections.Get(key)
			raw, err := marshalSection(*sec)
			if err != nil {
				return nil, err
			}
			defs.rawField(key, raw)
			if i > 0 {
				refs.WriteByte(',')
			}
			ref, err := json.Marshal("#/" + defsKey + "/" + key)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(refs, `{"$ref":%s}`, ref)
		}
		refs.WriteByte(']')
		w.rawField(defsKey, defs.bytes())
		w.rawField("allOf", refs.Bytes())
	}

	var out bytes.Buffer
	if err := json.Indent(&out, w.bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("schema: marshal document: %w", err)
	}
	return out.Bytes(), nil
}

func parseSection(raw json.RawMessage, path string) (Section, error) {
	members, err := decodeMembers(raw, path)
	if err != nil {
		return Section{}, err
	}
	var sec Section
	for _, m := range members {
		switch m.Key {
		case "title":
			if sec.Title, err = decodeString(m.Value, "title", path); err != nil {
				return Section{}, err
			}
		case "description":
			if sec.Description, err = decodeString(m.Value, "description", path); err != nil {
				return Section{}, err
			}
		case "fa_icon":
			if sec.Icon, err = decodeString(m.Value, "fa_icon", path); err != nil {
				return Section{}, err
			}
		case "type":
			// Sections are always objects; the member is regenerated on write.
		case "properties":
			props, err := decodeMembers(m.Value, path+"/properties")
			if err != nil {
				return Section{}, err
			}
			for _, pm := range props {
				prop, err := parseProperty(pm.Value, path+"/properties/"+pm.Key)
				if err != nil {
					return Section{}, err
				}
				sec.Properties.Set(pm.Key, prop)
			}
		case "required":
			if err := json.Unmarshal(m.Value, &sec.Required); err != nil {
				return Section{}, fmt.Errorf("schema: %s: required must be an array of strings", path)
			}
		default:
			sec.Extra = append(sec.Extra, m)
		}
	}
	return sec, nil
}

func marshalSection(sec Section) (json.RawMessage, error) {
	w := newObjWriter()
	if sec.Title != "" {
		if err := w.field("title", sec.Title); err != nil {
			return nil, err
		}
	}
	if err := w.field("type", "object"); err != nil {
		return nil, err
	}
	if sec.Description != "" {
		if err := w.field("description", sec.Description); err != nil {
			return nil, err
		}
	}
	if sec.Icon != "" {
		if err := w.field("fa_icon", sec.Icon); err != nil {
			return nil, err
		}
	}
	for _, m := range sec.Extra {
		w.rawField(m.Key, m.Value)
	}

	props := newObjWriter()
	for _, name := range sec.Properties.Keys() {
		prop, _ := sec.Properties.Get(name)
		raw, err := marshalProperty(*prop)
		if err != nil {
			return nil, err
		}
		props.rawField(name, raw)
	}
	w.rawField("properties", props.bytes())

	if len(sec.Required) > 0 {
		if err := w.field("required", sec.Required); err != nil {
			return nil, err
		}
	}
	return w.bytes(), nil
}

func parseProperty(raw json.RawMessage, path string) (Property, error) {
	members, err := decodeMembers(raw, path)
	if err != nil {
		return Property{}, err
	}
	var prop Property
	for _, m := range members {
		switch m.Key {
		case "type":
			s, err := decodeString(m.Value, "type", path)
			if err != nil {
				return Property{}, err
			}
			prop.Type = PropertyType(s)
		case "title":
			if prop.Title, err = decodeString(m.Value, "title", path); err != nil {
				return Property{}, err
			}
		case "description":
			if prop.Description, err = decodeString(m.Value, "description", path); err != nil {
				return Property{}, err
			}
		case "help_text":
			if prop.HelpText, err = decodeString(m.Value, "help_text", path); err != nil {
				return Property{}, err
			}
		case "fa_icon":
			if prop.Icon, err = decodeString(m.Value, "fa_icon", path); err != nil {
				return Property{}, err
			}
		case "pattern":
			if prop.Pattern, err = decodeString(m.Value, "pattern", path); err != nil {
				return Property{}, err
			}
		case "format":
			if prop.Format, err = decodeString(m.Value, "format", path); err != nil {
				return Property{}, err
			}
		case "default":
			if err := json.Unmarshal(m.Value, &prop.Default); err != nil {
				return Property{}, fmt.Errorf("schema: %s: invalid default: %w", path, err)
			}
		case "enum":
			if err := json.Unmarshal(m.Value, &prop.Enum); err != nil {
				return Property{}, fmt.Errorf("schema: %s: enum must be an array", path)
			}
		case "minimum":
			if prop.Minimum, err = decodeNumber(m.Value, "minimum", path); err != nil {
				return Property{}, err
			}
		case "maximum":
			if prop.Maximum, err = decodeNumber(m.Value, "maximum", path); err != nil {
				return Property{}, err
			}
		case "multipleOf":
			if prop.MultipleOf, err = decodeNumber(m.Value, "multipleOf", path); err != nil {
				return Property{}, err
			}
		case "hidden":
			if err := json.Unmarshal(m.Value, &prop.Hidden); err != nil {
				return Property{}, fmt.Errorf("schema: %s: hidden must be a boolean", path)
			}
		default:
			prop.Extra = append(prop.Extra, m)
		}
	}
	return prop, nil
}

func marshalProperty(prop Property) (json.RawMessage, error) {
	w := newObjWriter()
	if err := w.field("type", string(prop.Type)); err != nil {
		return nil, err
	}
	stringFields := []struct {
		key   string
		value string
	}{
		{"title", prop.Title},
		{"description", prop.Description},
		{"help_text", prop.HelpText},
		{"fa_icon", prop.Icon},
		{"pattern", prop.Pattern},
		{"format", prop.Format},
	}
	for _, f := range stringFields {
		if f.value == "" {
			continue
		}
		if err := w.field(f.key, f.value); err != nil {
			return nil, err
		}
	}
	if prop.Default != nil {
		if err := w.field("default", prop.Default); err != nil {
			return nil, err
		}
	}
	if prop.Enum != nil {
		if err := w.field("enum", prop.Enum); err != nil {
			return nil, err
		}
	}
	if prop.Minimum != nil {
		if err := w.field("minimum", *prop.Minimum); err != nil {
			return nil, err
		}
	}
	if prop.Maximum != nil {
		if err := w.field("maximum", *prop.Maximum); err != nil {
			return nil, err
		}
	}
	if prop.MultipleOf != nil {
		if err := w.field("multipleOf", *prop.MultipleOf); err != nil {
			return nil, err
		}
	}
	if prop.Hidden {
		if err := w.field("hidden", true); err != nil {
			return nil, err
		}
	}
	for _, m := range prop.Extra {
		w.rawField(m.Key, m.Value)
	}
	return w.bytes(), nil
}

// refOrder extracts section keys from an allOf reference list, ignoring
// entries that are not plain {"$ref": "#/<defsKey>/<key>"} objects.
func refOrder(allOf json.RawMessage, defsKey string) []string {
	if allOf == nil {
		return nil
	}
	var entries []struct {
		Ref string `json:"$ref"`
	}
	if err := json.Unmarshal(allOf, &entries); err != nil {
		return nil
	}
	prefix := "#/" + defsKey + "/"
	var out []string
	for _, e := range entries {
		if len(e.Ref) > len(prefix) && e.Ref[:len(prefix)] == prefix {
			out = append(out, e.Ref[len(prefix):])
		}
	}
	return out
}

func decodeMembers(data []byte, path string) ([]Member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("schema: %s must be an object", path)
	}
	var out []Member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("schema: parse %s: %w", path, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("schema: parse %s: unexpected token %v", path, keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("schema: parse %s/%s: %w", path, key, err)
		}
		out = append(out, Member{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}
	return out, nil
}

func decodeString(raw json.RawMessage, key, path string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("schema: %s: %s must be a string", path, key)
	}
	return s, nil
}

func decodeNumber(raw json.RawMessage, key, path string) (*float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("schema: %s: %s must be a number", path, key)
	}
	return &f, nil
}

// objWriter accumulates a compact JSON object while preserving member order.
type objWriter struct {
	buf bytes.Buffer
	n   int
}

func newObjWriter() *objWriter {
	w := &objWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *objWriter) rawField(key string, raw json.RawMessage) {
	if w.n > 0 {
		w.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(raw)
	w.n++
}

func (w *objWriter) field(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("schema: marshal %s: %w", key, err)
	}
	w.rawField(key, raw)
	return nil
}

func (w *objWriter) bytes() json.RawMessage {
	out := make([]byte, 0, w.buf.Len()+1)
	out = append(out, w.buf.Bytes()...)
	return append(out, '}')
}
