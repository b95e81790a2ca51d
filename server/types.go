package server

import (
	"time"

	"github.com/simon-stellaris-mod/translation-tools/corpus"
	"github.com/simon-stellaris-mod/translation-tools/diff"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/store"
)

const timeLayout = "2006-01-02 15:04:05"

type Language struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

type Languages struct {
	Default   string     `json:"default"`
	Languages []Language `json:"languages"`
}

func NewLanguages(def langmeta.Tag) Languages {
	tags := langmeta.Tags()
	out := Languages{Default: string(def), Languages: make([]Language, len(tags))}
	for i, t := range tags {
		m := langmeta.Resolve(t)
		out.Languages[i] = Language{Tag: string(t), Name: m.Name, Flag: m.Flag}
	}
	return out
}

type Keys struct {
	Language string         `json:"language"`
	New      []string       `json:"new"`
	Changed  []string       `json:"changed"`
	Done     []string       `json:"done"`
	Skipped  []string       `json:"skipped"`
	Counts   map[string]int `json:"counts"`
}

func NewKeys(lang langmeta.Tag, r diff.Result) Keys {
	return Keys{
		Language: string(lang),
		New:      nonNil(r.New),
		Changed:  nonNil(r.Changed),
		Done:     nonNil(r.Done),
		Skipped:  nonNil(r.Skipped),
		Counts:   r.Counts(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type SourceValue struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type Source struct {
	Key    string        `json:"key"`
	Values []SourceValue `json:"values"`
}

func NewSource(item *corpus.Item) *Source {
	s := &Source{Key: item.Key, Values: make([]SourceValue, len(item.Values))}
	for i, v := range item.Values {
		s.Values[i] = SourceValue{Language: string(v.Language), Value: v.Text}
	}
	return s
}

type Translation struct {
	Value         string `json:"value"`
	OriginalValue string `json:"original_value"`
	Skipped       bool   `json:"skipped"`
	UpdateTime    string `json:"update_time"`
}

func NewTranslation(rec store.Record) *Translation {
	t := &Translation{
		Value:         rec.TranslatedValue,
		OriginalValue: rec.OriginalValue,
		Skipped:       rec.Skipped,
		UpdateTime:    "Never",
	}
	if rec.UpdatedAt > 0 {
		t.UpdateTime = time.Unix(rec.UpdatedAt, 0).Format(timeLayout)
	}
	return t
}

type TranslationView struct {
	Key         string       `json:"key"`
	Language    string       `json:"language"`
	State       string       `json:"state,omitempty"`
	Source      *Source      `json:"source,omitempty"`
	Translation *Translation `json:"translation,omitempty"`
}

// submission is the POST /_/translation body. Value is a pointer so that
// a JSON null is accepted and treated like an empty string.
type submission struct {
	Key      string  `json:"key"`
	Value    *string `json:"value"`
	Language string  `json:"language"`
	Skipped  bool    `json:"skipped"`
}

type Saved struct {
	Summary string   `json:"summary"`
	Files   []string `json:"files,omitempty"`
}

type Reloaded struct {
	Files      int `json:"files"`
	Keys       int `json:"keys"`
	Duplicates int `json:"duplicates"`
}
