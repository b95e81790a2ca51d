// Package diff classifies source keys into translation workflow states for
// one target language by comparing the current canonical source value of
// every key with the snapshot stored alongside its translation.
package diff

import (
	"github.com/simon-stellaris-mod/translation-tools/corpus"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/store"
)

// State is the workflow state of a key.
type State int

const (
	// New: no translation record exists.
	New State = iota
	// Changed: the source text drifted since the translation was recorded.
	Changed
	// Done: translated against the current source text.
	Done
	// Skipped: explicitly marked as not to be translated.
	Skipped
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Changed:
		return "changed"
	case Done:
		return "done"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Source is the read side of the source corpus.
type Source interface {
	SortedKeys() []string
	Get(key string) (*corpus.Item, bool)
}

// Records is the read side of the translation store.
type Records interface {
	Get(key string, lang langmeta.Tag) (store.Record, bool)
}

// Result partitions the source keys by state. Each slice is in ascending
// key order.
type Result struct {
	New     []string
	Changed []string
	Done    []string
	Skipped []string
}

// StateOf computes the state of one item. The second return value is false
// for items without any source value, which belong to no state.
func StateOf(item *corpus.Item, rec store.Record, hasRecord bool) (State, bool) {
	orig, ok := item.Original()
	if !ok {
		return 0, false
	}
	switch {
	case !hasRecord:
		return New, true
	case orig.Text != rec.OriginalValue:
		return Changed, true
	case rec.Skipped:
		return Skipped, true
	default:
		return Done, true
	}
}

// Classify partitions every source key for lang.
func Classify(src Source, recs Records, lang langmeta.Tag) Result {
	var r Result
	for _, key := range src.SortedKeys() {
		item, _ := src.Get(key)
		rec, hasRecord := recs.Get(key, lang)
		state, ok := StateOf(item, rec, hasRecord)
		if !ok {
			continue
		}
		switch state {
		case New:
			r.New = append(r.New, key)
		case Changed:
			r.Changed = append(r.Changed, key)
		case Done:
			r.Done = append(r.Done, key)
		case Skipped:
			r.Skipped = append(r.Skipped, key)
		}
	}
	return r
}

// Keys returns the bucket for s.
func (r Result) Keys(s State) []string {
	switch s {
	case New:
		return r.New
	case Changed:
		return r.Changed
	case Done:
		return r.Done
	case Skipped:
		return r.Skipped
	}
	return nil
}

// Counts returns the bucket sizes keyed by state name.
func (r Result) Counts() map[string]int {
	return map[string]int{
		New.String():     len(r.New),
		Changed.String(): len(r.Changed),
		Done.String():    len(r.Done),
		Skipped.String(): len(r.Skipped),
	}
}

// Total returns the number of classified keys.
func (r Result) Total() int {
	return len(r.New) + len(r.Changed) + len(r.Done) + len(r.Skipped)
}

// Pending returns the keys that need attention: new then changed.
func (r Result) Pending() []string {
	keys := make([]string, 0, len(r.New)+len(r.Changed))
	keys = append(keys, r.New...)
	return append(keys, r.Changed...)
}
