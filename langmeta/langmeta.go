// Package langmeta defines the closed set of localisation languages the
// game engine understands, together with the header tokens and file name
// suffixes derived from them and a small display-metadata registry used by
// the CLI.
package langmeta

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Tag identifies one supported localisation language, e.g. "english".
type Tag string

const (
	BrazPor     Tag = "braz_por"
	English     Tag = "english"
	French      Tag = "french"
	German      Tag = "german"
	Japanese    Tag = "japanese"
	Korean      Tag = "korean"
	Polish      Tag = "polish"
	Russian     Tag = "russian"
	SimpChinese Tag = "simp_chinese"
	Spanish     Tag = "spanish"
)

// ErrUnknownLanguage is returned when a language name is not one of the
// supported tags.
var ErrUnknownLanguage = errors.New("unknown language")

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains display metadata for every supported tag.
var Registry = map[Tag]Meta{
	BrazPor:     {Name: "Português (Brasil)", Flag: "🇧🇷"},
	English:     {Name: "English", Flag: "🇬🇧"},
	French:      {Name: "Français", Flag: "🇫🇷"},
	German:      {Name: "Deutsch", Flag: "🇩🇪"},
	Japanese:    {Name: "日本語", Flag: "🇯🇵"},
	Korean:      {Name: "한국어", Flag: "🇰🇷"},
	Polish:      {Name: "Polski", Flag: "🇵🇱"},
	Russian:     {Name: "Русский", Flag: "🇷🇺"},
	SimpChinese: {Name: "简体中文", Flag: "🇨🇳"},
	Spanish:     {Name: "Español", Flag: "🇪🇸"},
}

// headerPrefix is prepended to a tag to form the first line of a file.
const headerPrefix = "l_"

var headers = func() map[string]Tag {
	m := make(map[string]Tag, len(Registry))
	for t := range Registry {
		m[headerPrefix+string(t)] = t
	}
	return m
}()

// Tags returns all supported tags in ascending order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(Registry))
	for t := range Registry {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Names returns all supported tags as strings, sorted.
func Names() []string {
	tags := Tags()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return names
}

// Parse validates a language name. Surrounding whitespace is ignored, case is not.
func Parse(s string) (Tag, error) {
	t := Tag(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("%w %q (must be one of: %s)", ErrUnknownLanguage, s, strings.Join(Names(), ", "))
	}
	return t, nil
}

// ParseList validates every element of names.
func ParseList(names []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(names))
	for _, n := range names {
		t, err := Parse(n)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Valid reports whether t is a supported tag.
func (t Tag) Valid() bool {
	_, ok := Registry[t]
	return ok
}

// Header returns the header token for t, without the trailing colon.
func (t Tag) Header() string {
	return headerPrefix + string(t)
}

// FileSuffix returns the conventional file name suffix, e.g. "_l_english.yml".
func (t Tag) FileSuffix() string {
	return "_" + headerPrefix + string(t) + ".yml"
}

// FromHeader maps a header token such as "l_english" to its tag.
func FromHeader(token string) (Tag, bool) {
	t, ok := headers[token]
	return t, ok
}

// HasFileSuffix reports whether name ends with the suffix of any supported tag.
func HasFileSuffix(name string) bool {
	for t := range Registry {
		if strings.HasSuffix(name, t.FileSuffix()) {
			return true
		}
	}
	return false
}

// Resolve returns display metadata for t, falling back to the raw tag.
func Resolve(t Tag) Meta {
	if m, ok := Registry[t]; ok {
		return m
	}
	return Meta{Name: string(t), Flag: ""}
}
