// Package yamlfile writes built localisation files as YAML documents.
//
// The output is a single top-level mapping named after the language header,
// with every value double quoted:
//
//	l_simp_chinese:
//	  GREETING: "你好"
//	  MULTILINE: "first\nsecond"
//
// Files are written with a UTF-8 byte order mark, which the game requires.
// Unlike source files, which are parsed leniently by package locfile, these
// files are generated by us and are valid YAML, so they are read back with
// a real YAML parser.
package yamlfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/locfile"
)

const bom = "\ufeff"

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// File is an ordered set of entries for one language.
type File struct {
	Language langmeta.Tag
	// entries stores all entries in insertion order.
	entries []locfile.Entry
	// index maps key → index in entries for fast lookup.
	index map[string]int
}

// New creates an empty file for lang.
func New(lang langmeta.Tag) *File {
	return &File{Language: lang, index: make(map[string]int)}
}

// Set adds key with value, or replaces the value of an existing key in place.
func (f *File) Set(key, value string) {
	if idx, ok := f.index[key]; ok {
		f.entries[idx].Value = value
		return
	}
	f.index[key] = len(f.entries)
	f.entries = append(f.entries, locfile.Entry{Key: key, Value: value})
}

// Get returns the value for key.
func (f *File) Get(key string) (string, bool) {
	idx, ok := f.index[key]
	if !ok {
		return "", false
	}
	return f.entries[idx].Value, true
}

// Keys returns all keys in insertion order.
func (f *File) Keys() []string {
	keys := make([]string, len(f.entries))
	for i, e := range f.entries {
		keys[i] = e.Key
	}
	return keys
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a generated YAML localisation file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a generated YAML localisation file.
func Parse(data []byte) (*File, error) {
	data = bytes.TrimPrefix(data, []byte(bom))

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("YAML document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || len(root.Content) != 2 {
		return nil, fmt.Errorf("YAML root must be a mapping with a single language key")
	}
	header, body := root.Content[0], root.Content[1]
	lang, ok := langmeta.FromHeader(header.Value)
	if !ok {
		return nil, fmt.Errorf("%w [%s]", locfile.ErrMalformedHeader, header.Value)
	}
	if body.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s must be a mapping, got kind %d", header.Value, body.Kind)
	}

	f := New(lang)
	for i := 0; i+1 < len(body.Content); i += 2 {
		keyNode, valNode := body.Content[i], body.Content[i+1]
		if valNode.Kind != yaml.ScalarNode {
			continue
		}
		f.Set(keyNode.Value, valNode.Value)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal serialises the file to YAML, prefixed with a byte order mark.
func (f *File) Marshal() ([]byte, error) {
	if !f.Language.Valid() {
		return nil, fmt.Errorf("%w: cannot write language %q", langmeta.ErrUnknownLanguage, f.Language)
	}

	body := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range f.entries {
		body.Content = append(body.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Value, Style: yaml.DoubleQuotedStyle},
		)
	}
	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{{
			Kind: yaml.MappingNode,
			Tag:  "!!map",
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Language.Header()},
				body,
			},
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(bom)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f.Language.Header(), err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile serialises the file and writes it to the given path.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
