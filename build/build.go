// Package build produces the final per-language localisation files by
// merging recorded translations with source fallbacks.
//
// For every source key, in ascending key order:
//   - a non-skipped record with a non-empty translation wins;
//   - otherwise, when untranslated keys are included, the source value in the
//     target language is used, falling back to the key's canonical (first)
//     source value;
//   - otherwise the key is left out.
//
// Only languages that have at least one translation record are built.
package build

import (
	"fmt"
	"path/filepath"

	"github.com/simon-stellaris-mod/translation-tools/corpus"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/locfile"
	"github.com/simon-stellaris-mod/translation-tools/store"
	"github.com/simon-stellaris-mod/translation-tools/yamlfile"
)

// ReplaceDir is the directory under the output root whose files override
// same-named keys of the base game.
const ReplaceDir = "replace"

// Style selects the output serializer.
type Style string

const (
	// StyleYAML writes through yaml.v3 with double-quoted values.
	StyleYAML Style = "yaml"
	// StyleNative writes the same line format the source files use.
	StyleNative Style = "native"
)

// ParseStyle validates a style name. The empty string selects StyleYAML.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "", StyleYAML:
		return StyleYAML, nil
	case StyleNative:
		return StyleNative, nil
	}
	return "", fmt.Errorf("unknown output style %q (must be %s or %s)", s, StyleYAML, StyleNative)
}

// Source is the read side of the source corpus.
type Source interface {
	SortedKeys() []string
	Get(key string) (*corpus.Item, bool)
}

// Records is the read side of the translation store.
type Records interface {
	Get(key string, lang langmeta.Tag) (store.Record, bool)
	Languages() []langmeta.Tag
}

// Output is the payload for one language, in ascending key order.
type Output struct {
	Language langmeta.Tag
	Entries  []locfile.Entry
}

// Map returns the output as a key → value map.
func (o Output) Map() map[string]string {
	m := make(map[string]string, len(o.Entries))
	for _, e := range o.Entries {
		m[e.Key] = e.Value
	}
	return m
}

// Build computes the output for one language.
func Build(src Source, recs Records, lang langmeta.Tag, includeUntranslated bool) Output {
	out := Output{Language: lang}
	for _, key := range src.SortedKeys() {
		if rec, ok := recs.Get(key, lang); ok && !rec.Skipped && rec.TranslatedValue != "" {
			out.Entries = append(out.Entries, locfile.Entry{Key: key, Value: rec.TranslatedValue})
			continue
		}
		if !includeUntranslated {
			continue
		}
		if v, ok := fallback(src, key, lang); ok {
			out.Entries = append(out.Entries, locfile.Entry{Key: key, Value: v})
		}
	}
	return out
}

func fallback(src Source, key string, lang langmeta.Tag) (string, bool) {
	item, ok := src.Get(key)
	if !ok {
		return "", false
	}
	if v, ok := item.ValueFor(lang); ok {
		return v, true
	}
	orig, ok := item.Original()
	return orig.Text, ok
}

// BuildAll computes the output of every recorded language, sorted by language.
func BuildAll(src Source, recs Records, includeUntranslated bool) []Output {
	langs := recs.Languages()
	outs := make([]Output, 0, len(langs))
	for _, lang := range langs {
		outs = append(outs, Build(src, recs, lang, includeUntranslated))
	}
	return outs
}

// FileName returns the output file name for a build named name.
func FileName(name string, lang langmeta.Tag) string {
	return name + lang.FileSuffix()
}

// Path returns the output path for one language under root.
func Path(root, name string, lang langmeta.Tag) string {
	return filepath.Join(root, ReplaceDir, string(lang), FileName(name, lang))
}

// Write serialises outs under root and returns the written paths.
func Write(outs []Output, root, name string, style Style) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("build name is required")
	}
	paths := make([]string, 0, len(outs))
	for _, out := range outs {
		path := Path(root, name, out.Language)
		if err := writeOne(out, path, style); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeOne(out Output, path string, style Style) error {
	switch style {
	case StyleNative:
		f := &locfile.File{Language: out.Language, Entries: out.Entries}
		// Always escape newlines so every entry stays on one line.
		return f.WriteFile(path, locfile.Options{UnescapeNewlines: true})
	default:
		f := yamlfile.New(out.Language)
		for _, e := range out.Entries {
			f.Set(e.Key, e.Value)
		}
		return f.WriteFile(path)
	}
}

// Check re-reads the file written for out at path and reports the first
// key whose value differs from what was built.
func Check(out Output, path string, style Style) error {
	var (
		lang langmeta.Tag
		keys []string
		get  func(string) (string, bool)
	)
	switch style {
	case StyleNative:
		f, err := locfile.ParseFile(path, locfile.Options{UnescapeNewlines: true})
		if err != nil {
			return err
		}
		lang, keys, get = f.Language, f.Keys(), f.Get
	default:
		f, err := yamlfile.ParseFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		lang, keys, get = f.Language, f.Keys(), f.Get
	}

	if lang != out.Language {
		return fmt.Errorf("%s: language %q, want %q", path, lang, out.Language)
	}
	if len(keys) != len(out.Entries) {
		return fmt.Errorf("%s: %d keys, want %d", path, len(keys), len(out.Entries))
	}
	for _, e := range out.Entries {
		got, ok := get(e.Key)
		if !ok {
			return fmt.Errorf("%s: key %s is missing", path, e.Key)
		}
		if got != e.Value {
			return fmt.Errorf("%s: key %s reads back as %q, want %q", path, e.Key, got, e.Value)
		}
	}
	return nil
}
