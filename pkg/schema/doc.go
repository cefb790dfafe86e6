// Package schema defines the canonical pipeline parameter schema document:
// an ordered collection of sections, each holding an ordered collection of
// typed properties, plus the validation rules every document must satisfy
// before it may replace the working draft or travel to the backing store.
//
// Documents round-trip losslessly to the on-disk JSON Schema wrapper
// ($schema, $defs keyed by section, allOf references); members the model does
// not understand are carried through untouched, in their original order.
package schema
