// Package store implements the translation data file, a line-oriented JSON
// file that records, per language and key, the translated text together
// with a snapshot of the source text it was translated from.
//
// One record per line:
//
//	{"k":"GREETING","l":"simp_chinese","t":1710400000,"v0":"Hello","v1":"你好"}
//	{"k":"ALIAS","l":"simp_chinese","s":true,"t":1710400000,"v0":"$GREETING$","v1":""}
//
// Records are written sorted by language then key so that the file produces
// small, reviewable diffs under version control.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/simon-stellaris-mod/translation-tools/corpus"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
)

// ErrSourceKeyNotFound is returned by Add when the key has no source value.
var ErrSourceKeyNotFound = errors.New("source key not found")

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Record is the stored state of one (language, key) translation.
type Record struct {
	// OriginalValue is the source text at the time the translation was made.
	OriginalValue string
	// TranslatedValue is the translation; empty for skipped keys.
	TranslatedValue string
	// Skipped marks an explicit "do not translate" decision.
	Skipped bool
	// UpdatedAt is a Unix timestamp in seconds.
	UpdatedAt int64
}

// Source is the part of the source corpus the store needs.
type Source interface {
	Get(key string) (*corpus.Item, bool)
}

// Store holds translation records in memory. It is not safe for concurrent use.
type Store struct {
	records map[langmeta.Tag]map[string]Record
	now     func() time.Time
}

// line is the persisted form of a record. Fields are declared in sorted
// order so the encoder writes sorted keys.
type line struct {
	K  string `json:"k"`
	L  string `json:"l"`
	S  bool   `json:"s,omitempty"`
	T  int64  `json:"t"`
	V0 string `json:"v0"`
	V1 string `json:"v1"`
}

// New returns an empty store.
func New() *Store {
	return &Store{
		records: make(map[langmeta.Tag]map[string]Record),
		now:     time.Now,
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a store file. A missing file yields an empty store.
// Unparseable lines are skipped.
func Load(path string) (*Store, error) {
	s := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		lang, key, rec, ok := decodeLine(text)
		if !ok {
			log.Debug().Str("path", path).Int("line", n).Msg("Skipping malformed translation record")
			continue
		}
		s.put(lang, key, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return s, nil
}

func decodeLine(text string) (langmeta.Tag, string, Record, bool) {
	if !gjson.Valid(text) {
		return "", "", Record{}, false
	}
	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return "", "", Record{}, false
	}
	fields := doc.Map()

	l, k := fields["l"], fields["k"]
	if l.Type != gjson.String || k.Type != gjson.String {
		return "", "", Record{}, false
	}
	lang := langmeta.Tag(strings.TrimSpace(l.Str))
	key := strings.TrimSpace(k.Str)
	if key == "" || !lang.Valid() {
		return "", "", Record{}, false
	}

	rec := Record{
		OriginalValue:   fields["v0"].String(),
		TranslatedValue: fields["v1"].String(),
	}
	// Any "s" other than false marks the record skipped, null included.
	if s, ok := fields["s"]; ok && s.Type != gjson.False {
		rec.Skipped = true
	}
	if t := fields["t"]; t.Type == gjson.Number && t.Num == float64(t.Int()) {
		rec.UpdatedAt = t.Int()
	}
	return lang, key, rec, true
}

// Save writes the store to path. Only records carrying a translation or
// the skip flag are written. The file is replaced atomically.
func (s *Store) Save(path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, lang := range s.Languages() {
		items := s.records[lang]
		for _, key := range sortedKeys(items) {
			rec := items[key]
			if rec.TranslatedValue == "" && !rec.Skipped {
				continue
			}
			if err := enc.Encode(line{
				K:  key,
				L:  string(lang),
				S:  rec.Skipped,
				T:  rec.UpdatedAt,
				V0: rec.OriginalValue,
				V1: rec.TranslatedValue,
			}); err != nil {
				return fmt.Errorf("encoding %s/%s: %w", lang, key, err)
			}
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Record operations
// ---------------------------------------------------------------------------

// Get returns the record for (key, lang).
func (s *Store) Get(key string, lang langmeta.Tag) (Record, bool) {
	rec, ok := s.records[lang][key]
	return rec, ok
}

// Add records a translation, replacing any existing record for (key, lang).
// The source's canonical value for key is captured as the snapshot.
func (s *Store) Add(key string, lang langmeta.Tag, value string, skipped bool, src Source) error {
	item, ok := src.Get(key)
	orig, hasValue := item.Original()
	if !ok || !hasValue {
		return fmt.Errorf("%w: %s", ErrSourceKeyNotFound, key)
	}
	s.put(lang, key, Record{
		OriginalValue:   orig.Text,
		TranslatedValue: value,
		Skipped:         skipped,
		UpdatedAt:       s.now().Unix(),
	})
	return nil
}

// Delete removes the record for (key, lang) if there is one.
func (s *Store) Delete(key string, lang langmeta.Tag) {
	items, ok := s.records[lang]
	if !ok {
		return
	}
	delete(items, key)
	if len(items) == 0 {
		delete(s.records, lang)
	}
}

func (s *Store) put(lang langmeta.Tag, key string, rec Record) {
	if s.records[lang] == nil {
		s.records[lang] = make(map[string]Record)
	}
	s.records[lang][key] = rec
}

// Clean removes records of lang whose key is not in currentKeys and returns
// how many were removed. This prevents stale entries from accumulating.
func (s *Store) Clean(lang langmeta.Tag, currentKeys []string) int {
	existing := s.records[lang]
	if existing == nil {
		return 0
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	removed := 0
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
			removed++
		}
	}
	if len(existing) == 0 {
		delete(s.records, lang)
	}
	return removed
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Languages returns the languages that have at least one record, sorted.
func (s *Store) Languages() []langmeta.Tag {
	langs := make([]langmeta.Tag, 0, len(s.records))
	for lang, items := range s.records {
		if len(items) > 0 {
			langs = append(langs, lang)
		}
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Keys returns the recorded keys of lang, sorted.
func (s *Store) Keys(lang langmeta.Tag) []string {
	return sortedKeys(s.records[lang])
}

// Stats returns the number of languages and total records.
func (s *Store) Stats() (languages, records int) {
	for _, m := range s.records {
		if len(m) > 0 {
			languages++
			records += len(m)
		}
	}
	return
}

// Summary returns a human-readable summary string.
func (s *Store) Summary() string {
	languages, records := s.Stats()
	if languages == 0 {
		return "empty"
	}

	var parts []string
	for _, lang := range s.Languages() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", lang, len(s.records[lang])))
	}
	return fmt.Sprintf("%d languages, %d records (%s)", languages, records, strings.Join(parts, ", "))
}

func sortedKeys(m map[string]Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
