// Package workspace ties the source corpus and the translation store
// together behind the operations the CLI and the HTTP server use.
//
// A Workspace is constructed once per process and passed to every handler.
// It does no locking; callers serialise access.
package workspace

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/simon-stellaris-mod/translation-tools/build"
	"github.com/simon-stellaris-mod/translation-tools/corpus"
	"github.com/simon-stellaris-mod/translation-tools/diff"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/store"
)

// aliasValue matches values that only reference another key, e.g. "$KEY$".
// A single trailing newline is allowed.
var aliasValue = regexp.MustCompile(`^ *\$[^$]*\$ *\n?\z`)

// Options configures a Workspace.
type Options struct {
	// Name is used in build output file names.
	Name string
	// SourcePaths are the files or directories making up the source corpus.
	SourcePaths []string
	// SourceLanguages restricts which source files are loaded.
	SourceLanguages []langmeta.Tag
	// DataFile is the translation store path.
	DataFile string
	// OutputPath is the build output root.
	OutputPath string
	// Style selects the build output serializer.
	Style build.Style
	// Corpus configures parsing and file filtering.
	Corpus corpus.Options
}

// Workspace is the service object over one mod's translation data.
type Workspace struct {
	opts   Options
	corpus *corpus.Corpus
	store  *store.Store
}

// New creates a workspace with an empty corpus and store.
func New(opts Options) *Workspace {
	return &Workspace{
		opts:   opts,
		corpus: corpus.New(opts.Corpus),
		store:  store.New(),
	}
}

// Open creates a workspace and loads both the corpus and the store.
func Open(opts Options) (*Workspace, error) {
	w := New(opts)
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Options returns the options the workspace was created with.
func (w *Workspace) Options() Options {
	return w.opts
}

// Corpus returns the source corpus.
func (w *Workspace) Corpus() *corpus.Corpus {
	return w.corpus
}

// Store returns the translation store.
func (w *Workspace) Store() *store.Store {
	return w.store
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// LoadCorpus rebuilds the source corpus from paths.
func (w *Workspace) LoadCorpus(paths []string, languages []langmeta.Tag) error {
	if len(paths) == 0 {
		return fmt.Errorf("at least one source path is required")
	}
	if err := w.corpus.Load(paths, languages); err != nil {
		return fmt.Errorf("loading source corpus: %w", err)
	}
	return nil
}

// LoadStore replaces the translation store with the contents of path.
func (w *Workspace) LoadStore(path string) error {
	s, err := store.Load(path)
	if err != nil {
		return err
	}
	w.store = s
	return nil
}

// SaveStore writes the translation store to path.
func (w *Workspace) SaveStore(path string) error {
	if err := w.store.Save(path); err != nil {
		return err
	}
	langs, records := w.store.Stats()
	log.Debug().Str("path", path).Int("languages", langs).Int("records", records).Msg("Translation data saved")
	return nil
}

// Reload reloads the corpus and the store from the configured paths.
func (w *Workspace) Reload() error {
	if err := w.LoadCorpus(w.opts.SourcePaths, w.opts.SourceLanguages); err != nil {
		return err
	}
	if w.opts.DataFile == "" {
		return fmt.Errorf("data file is required")
	}
	return w.LoadStore(w.opts.DataFile)
}

// Save writes the store to the configured data file.
func (w *Workspace) Save() error {
	if w.opts.DataFile == "" {
		return fmt.Errorf("data file is required")
	}
	return w.SaveStore(w.opts.DataFile)
}

// ---------------------------------------------------------------------------
// Translations
// ---------------------------------------------------------------------------

// Source returns the source item for key.
func (w *Workspace) Source(key string) (*corpus.Item, bool) {
	return w.corpus.Get(key)
}

// GetTranslation returns the record for (key, lang).
func (w *Workspace) GetTranslation(key string, lang langmeta.Tag) (store.Record, bool) {
	return w.store.Get(key, lang)
}

// SetTranslation records a translation or a skip decision for key.
func (w *Workspace) SetTranslation(key string, lang langmeta.Tag, value string, skipped bool) error {
	return w.store.Add(key, lang, value, skipped, w.corpus)
}

// DeleteTranslation removes the record for (key, lang).
func (w *Workspace) DeleteTranslation(key string, lang langmeta.Tag) {
	w.store.Delete(key, lang)
}

// Classify partitions the source keys by workflow state for lang.
func (w *Workspace) Classify(lang langmeta.Tag) diff.Result {
	return diff.Classify(w.corpus, w.store, lang)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

// Build returns the output payload for lang.
func (w *Workspace) Build(lang langmeta.Tag, includeUntranslated bool) build.Output {
	return build.Build(w.corpus, w.store, lang, includeUntranslated)
}

// BuildFiles writes one output file per recorded language and returns the
// written paths.
func (w *Workspace) BuildFiles(includeUntranslated bool) ([]string, error) {
	if w.opts.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}
	outs := build.BuildAll(w.corpus, w.store, includeUntranslated)
	paths, err := build.Write(outs, w.opts.OutputPath, w.opts.Name, w.opts.Style)
	if err != nil {
		return paths, fmt.Errorf("building: %w", err)
	}
	for i, p := range paths {
		log.Debug().Str("path", p).Int("keys", len(outs[i].Entries)).Msg("Wrote localisation file")
	}
	return paths, nil
}

// CheckFiles re-reads the files BuildFiles would write and verifies they
// hold exactly what the current corpus and store produce.
func (w *Workspace) CheckFiles(includeUntranslated bool) error {
	for _, out := range build.BuildAll(w.corpus, w.store, includeUntranslated) {
		path := build.Path(w.opts.OutputPath, w.opts.Name, out.Language)
		if err := build.Check(out, path, w.opts.Style); err != nil {
			return fmt.Errorf("checking build output: %w", err)
		}
		log.Debug().Str("path", path).Msg("Build output verified")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Maintenance
// ---------------------------------------------------------------------------

// AutoSkip marks every new or changed key of lang whose canonical value is
// only a reference to another key (e.g. "$OTHER_KEY$") as skipped.
// It returns the number of keys marked.
func (w *Workspace) AutoSkip(lang langmeta.Tag) (int, error) {
	n := 0
	for _, key := range w.Classify(lang).Pending() {
		item, _ := w.corpus.Get(key)
		orig, ok := item.Original()
		if !ok || orig.Text == "" || !aliasValue.MatchString(orig.Text) {
			continue
		}
		if err := w.SetTranslation(key, lang, "", true); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Prune removes records whose key no longer exists in the source corpus,
// for every recorded language. It returns the number of removed records.
func (w *Workspace) Prune() int {
	keys := w.corpus.SortedKeys()
	removed := 0
	for _, lang := range w.store.Languages() {
		n := w.store.Clean(lang, keys)
		if n > 0 {
			log.Debug().Str("language", string(lang)).Int("removed", n).Msg("Pruned stale records")
		}
		removed += n
	}
	return removed
}
