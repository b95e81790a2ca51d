// Package corpus aggregates parsed localisation files into one in-memory
// source corpus keyed by localisation key.
//
// Every key maps to the ordered list of values found for it across all
// loaded files, in discovery order (lexical directory walk, then document
// order within a file). The first value of a key is its canonical original
// value: translations snapshot it and change detection compares against it,
// so the authoritative source language has to be loaded first, or the load
// restricted to it with a language filter.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/locfile"
)

// Value is one localised text together with its language.
type Value struct {
	Language langmeta.Tag
	Text     string
}

// Item is a key with all values discovered for it.
type Item struct {
	Key    string
	Values []Value
}

// Original returns the canonical (first) value of the item.
func (it *Item) Original() (Value, bool) {
	if it == nil || len(it.Values) == 0 {
		return Value{}, false
	}
	return it.Values[0], true
}

// ValueFor returns the first value recorded in lang.
func (it *Item) ValueFor(lang langmeta.Tag) (string, bool) {
	if it == nil {
		return "", false
	}
	for _, v := range it.Values {
		if v.Language == lang {
			return v.Text, true
		}
	}
	return "", false
}

// FileFilter decides whether a file found while walking a directory is
// offered to the parser. Explicitly named files are always parsed.
type FileFilter func(path string) bool

// SuffixFilter accepts only files named like "<name>_l_<language>.yml".
func SuffixFilter(path string) bool {
	return langmeta.HasFileSuffix(filepath.Base(path))
}

// Options configures a Corpus.
type Options struct {
	// Filter restricts which files are parsed during directory walks.
	// A nil Filter accepts every regular file.
	Filter FileFilter
	// Parse is passed to the line parser.
	Parse locfile.Options
}

// Stats summarises the last successful load.
type Stats struct {
	Files      int
	Keys       int
	Values     int
	Duplicates int
}

// Corpus is the aggregated source corpus. It is not safe for concurrent use.
type Corpus struct {
	opts       Options
	items      map[string]*Item
	sortedKeys []string
	stats      Stats
}

// New creates an empty corpus.
func New(opts Options) *Corpus {
	return &Corpus{
		opts:  opts,
		items: make(map[string]*Item),
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// loader accumulates one load; it is swapped into the Corpus on success.
type loader struct {
	opts  Options
	allow map[langmeta.Tag]bool
	items map[string]*Item
	stats Stats
}

// Load discards the current contents and rebuilds the corpus from paths,
// each a file or a directory. When languages is non-empty, files declaring
// any other language are ignored. A malformed header aborts the load and
// leaves the previous contents in place.
func (c *Corpus) Load(paths []string, languages []langmeta.Tag) error {
	l := &loader{
		opts:  c.opts,
		items: make(map[string]*Item),
	}
	if len(languages) > 0 {
		l.allow = make(map[langmeta.Tag]bool, len(languages))
		for _, lang := range languages {
			l.allow[lang] = true
		}
	}

	for _, p := range paths {
		if err := l.loadPath(p); err != nil {
			return err
		}
	}

	c.items = l.items
	c.sortedKeys = nil
	c.stats = l.stats
	c.stats.Keys = len(l.items)

	log.Debug().
		Int("files", c.stats.Files).
		Int("keys", c.stats.Keys).
		Int("duplicates", c.stats.Duplicates).
		Msg("Source corpus loaded")
	return nil
}

func (l *loader) loadPath(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", root).Msg("Source path does not exist, skipping")
			return nil
		}
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return l.loadFile(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if l.opts.Filter != nil && !l.opts.Filter(path) {
			log.Debug().Str("path", path).Msg("Skipping file rejected by filter")
			return nil
		}
		return l.loadFile(path)
	})
}

func (l *loader) loadFile(path string) error {
	f, err := locfile.ParseFile(path, l.opts.Parse)
	if err != nil {
		return err
	}
	if f.Language == "" {
		log.Debug().Str("path", path).Msg("Skipping file without content")
		return nil
	}
	if l.allow != nil && !l.allow[f.Language] {
		log.Debug().Str("path", path).Str("language", string(f.Language)).Msg("Skipping filtered language")
		return nil
	}

	l.stats.Files++
	for _, e := range f.Entries {
		l.add(path, f.Language, e)
	}
	return nil
}

func (l *loader) add(path string, lang langmeta.Tag, e locfile.Entry) {
	l.stats.Values++
	item, ok := l.items[e.Key]
	if !ok {
		l.items[e.Key] = &Item{Key: e.Key, Values: []Value{{Language: lang, Text: e.Value}}}
		return
	}
	if _, dup := item.ValueFor(lang); dup {
		l.stats.Duplicates++
		log.Warn().
			Str("key", e.Key).
			Str("language", string(lang)).
			Str("file", path).
			Msg("Duplicate key; only the first value is used for change detection")
	}
	item.Values = append(item.Values, Value{Language: lang, Text: e.Value})
}

// ---------------------------------------------------------------------------
// Querying
// ---------------------------------------------------------------------------

// Get returns the item for key.
func (c *Corpus) Get(key string) (*Item, bool) {
	it, ok := c.items[key]
	return it, ok
}

// SortedKeys returns all keys in ascending order. The slice is cached until
// the next load and must not be modified.
func (c *Corpus) SortedKeys() []string {
	if c.sortedKeys == nil {
		keys := make([]string, 0, len(c.items))
		for k := range c.items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		c.sortedKeys = keys
	}
	return c.sortedKeys
}

// Len returns the number of distinct keys.
func (c *Corpus) Len() int {
	return len(c.items)
}

// Stats returns counters from the last successful load.
func (c *Corpus) Stats() Stats {
	return c.stats
}
