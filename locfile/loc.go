// Package locfile implements reading and writing of Paradox-style
// localisation files.
//
// Format: the first non-empty line declares the language, followed by one
// quoted entry per line:
//
//	l_english:
//	  GREETING: "Hello"
//	  # comment
//	  FAREWELL:0 "Goodbye, \"friend\""
//
// The files look like YAML but mod-authored ones are routinely not valid
// YAML (stray indentation, version numbers after the colon, unescaped
// characters), so the parser works line by line and ignores anything it does
// not recognise. Only a bad header line fails the whole file.
package locfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/simon-stellaris-mod/translation-tools/langmeta"
)

// bom is the UTF-8 byte order mark the game writes at the start of files.
const bom = "\ufeff"

// ErrMalformedHeader is returned when the first non-empty line is not a
// known "l_<language>:" header.
var ErrMalformedHeader = errors.New("malformed header line")

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// Options controls escape handling.
type Options struct {
	// UnescapeNewlines turns the two-character sequence \n into a newline
	// when reading, and newlines back into \n when writing.
	UnescapeNewlines bool
}

// Entry is one key/value pair in document order.
type Entry struct {
	Key   string
	Value string
}

// File represents a parsed localisation file.
type File struct {
	// Language is empty when the file had no header at all.
	Language langmeta.Tag
	// Entries stores all recognised entries in document order.
	Entries []Entry
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a localisation file from disk.
func ParseFile(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		log.Warn().Str("path", path).Msg("File is not valid UTF-8, invalid bytes replaced with U+FFFD")
	}
	f, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses localisation content from a byte slice. Invalid UTF-8 is
// replaced with U+FFFD so values survive JSON and YAML encoding unchanged.
func Parse(data []byte, opts Options) (*File, error) {
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.TrimPrefix(text, bom)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	rawLines := strings.Split(text, "\n")

	f := &File{}
	i := 0
	for ; i < len(rawLines); i++ {
		if strings.TrimSpace(rawLines[i]) != "" {
			break
		}
	}
	if i == len(rawLines) {
		return f, nil
	}

	lang, err := parseHeader(strings.TrimSpace(rawLines[i]))
	if err != nil {
		return nil, err
	}
	f.Language = lang

	for _, raw := range rawLines[i+1:] {
		if e, ok := parseLine(raw, opts); ok {
			f.Entries = append(f.Entries, e)
		}
	}
	return f, nil
}

func parseHeader(line string) (langmeta.Tag, error) {
	token, ok := strings.CutSuffix(line, ":")
	if !ok {
		return "", fmt.Errorf("%w [%s]", ErrMalformedHeader, line)
	}
	lang, ok := langmeta.FromHeader(token)
	if !ok {
		return "", fmt.Errorf("%w [%s]", ErrMalformedHeader, line)
	}
	return lang, nil
}

// parseLine extracts an entry from one body line. Anything that does not look
// like `key: "value"` is ignored.
func parseLine(raw string, opts Options) (Entry, bool) {
	line := strings.TrimSpace(raw)
	switch {
	case line == "":
		return Entry{}, false
	case strings.HasPrefix(line, "#"):
		return Entry{}, false
	case !strings.HasSuffix(line, `"`):
		return Entry{}, false
	}

	colon := strings.IndexByte(line, ':')
	quote := strings.IndexByte(line, '"')
	if colon < 0 || quote < 0 {
		return Entry{}, false
	}

	value := ""
	if end := len(line) - 1; quote < end {
		value = line[quote+1 : end]
	}
	return Entry{
		Key:   strings.TrimSpace(line[:colon]),
		Value: Unescape(value, opts),
	}, true
}

// ---------------------------------------------------------------------------
// Escaping
// ---------------------------------------------------------------------------

// Unescape decodes \" and \\ (and \n when enabled) in a single pass. Other
// backslash sequences are kept as they are.
func Unescape(s string, opts Options) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch next := s[i+1]; {
		case next == '"' || next == '\\':
			b.WriteByte(next)
			i++
		case next == 'n' && opts.UnescapeNewlines:
			b.WriteByte('\n')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Escape is the inverse of Unescape for the same options.
func Escape(s string, opts Options) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n' && opts.UnescapeNewlines:
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, len(f.Entries))
	for i, e := range f.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the first value recorded for key.
func (f *File) Get(key string) (string, bool) {
	for _, e := range f.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the file back to the native format, prefixed with a BOM.
func (f *File) Marshal(opts Options) ([]byte, error) {
	if !f.Language.Valid() {
		return nil, fmt.Errorf("%w: cannot write language %q", langmeta.ErrUnknownLanguage, f.Language)
	}
	var buf bytes.Buffer
	buf.WriteString(bom)
	buf.WriteString(f.Language.Header())
	buf.WriteString(":\n")
	for _, e := range f.Entries {
		buf.WriteByte(' ')
		buf.WriteString(e.Key)
		buf.WriteString(`: "`)
		buf.WriteString(Escape(e.Value, opts))
		buf.WriteString("\"\n")
	}
	return buf.Bytes(), nil
}

// WriteFile serialises and writes to path, creating parent directories
// with 0755 permissions.
func (f *File) WriteFile(path string, opts Options) error {
	data, err := f.Marshal(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
