// Package store persists the schema document to disk for the backing store
// process. Input may be JSON or YAML; output is always indented JSON written
// atomically, so a crash mid-save never leaves a truncated schema behind.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-schemabuild/pkg/schema"
)

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger injects a logger; the default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *FileStore) {
		if log != nil {
			s.log = log
		}
	}
}

// FileStore reads and writes one schema file.
type FileStore struct {
	path string
	log  *zap.Logger
}

// New returns a store bound to path.
func New(path string, opts ...Option) *FileStore {
	s := &FileStore{path: filepath.Clean(path), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the schema file location.
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether the schema file is present.
func (s *FileStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Load reads and parses the schema file. YAML input (.yml/.yaml) is converted
// to JSON first, preserving member order.
func (s *FileStore) Load() (schema.SchemaDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return schema.SchemaDocument{}, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yml", ".yaml":
		if data, err = yamlToJSON(data); err != nil {
			return schema.SchemaDocument{}, fmt.Errorf("store: convert %s: %w", s.path, err)
		}
	}
	doc, err := schema.ParseDocument(data)
	if err != nil {
		return schema.SchemaDocument{}, fmt.Errorf("store: parse %s: %w", s.path, err)
	}
	return doc, nil
}

// Save writes doc atomically: the document is marshalled to a temp file in
// the same directory and renamed over the target.
func (s *FileStore) Save(doc schema.SchemaDocument) error {
	data, err := doc.MarshalWire()
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".schema-*.json")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("store: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("store: rename to %s: %w", s.path, err)
	}
	s.log.Debug("schema saved", zap.String("path", s.path), zap.Int("bytes", len(data)))
	return nil
}

// DefaultDocument synthesizes the starting document used when no schema file
// exists yet.
func DefaultDocument(name string) schema.SchemaDocument {
	doc := schema.NewDocument(name + " pipeline parameters")
	doc.Description = "Define parameters used by the pipeline."
	doc.Extra = schema.Extra{{Key: "type", Value: []byte(`"object"`)}}

	var sec schema.Section
	sec.Title = "Input/output options"
	sec.Description = "Define where the pipeline should find input data and save output data."
	sec.Icon = "fas fa-terminal"
	sec.Properties.Set("input", schema.Property{
		Type:        schema.TypeString,
		Description: "Path to the input samplesheet.",
		Format:      "file-path",
	})
	sec.Properties.Set("outdir", schema.Property{
		Type:        schema.TypeString,
		Description: "The output directory where results are saved.",
		Format:      "directory-path",
	})
	sec.Required = []string{"input", "outdir"}
	doc.Sections.Set("input_output_options", sec)
	return doc
}
