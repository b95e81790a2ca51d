package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/locfile"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// newTree creates a small mod localisation tree and returns its root.
func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "english", "a_l_english.yml"),
		"l_english:\n ZETA: \"Zeta\"\n ALPHA: \"Alpha\"\n")
	writeFile(t, filepath.Join(root, "english", "b_l_english.yml"),
		"l_english:\n MID: \"Middle\"\n")
	writeFile(t, filepath.Join(root, "russian", "a_l_russian.yml"),
		"l_russian:\n ALPHA: \"Альфа\"\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "")
	return root
}

func TestLoad_AggregatesInDiscoveryOrder(t *testing.T) {
	root := newTree(t)
	c := New(Options{})
	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantKeys := []string{"ALPHA", "MID", "ZETA"}
	if got := c.SortedKeys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("SortedKeys() = %v, want %v", got, wantKeys)
	}

	item, ok := c.Get("ALPHA")
	if !ok {
		t.Fatal("ALPHA missing")
	}
	want := []Value{
		{Language: langmeta.English, Text: "Alpha"},
		{Language: langmeta.Russian, Text: "Альфа"},
	}
	if !reflect.DeepEqual(item.Values, want) {
		t.Fatalf("ALPHA values = %#v, want %#v", item.Values, want)
	}
	if orig, _ := item.Original(); orig.Text != "Alpha" {
		t.Errorf("Original() = %#v", orig)
	}
	if v, ok := item.ValueFor(langmeta.Russian); !ok || v != "Альфа" {
		t.Errorf("ValueFor(russian) = %q, %v", v, ok)
	}
	if _, ok := item.ValueFor(langmeta.German); ok {
		t.Error("ValueFor(german) should be absent")
	}

	st := c.Stats()
	if st.Files != 3 || st.Keys != 3 || st.Values != 4 || st.Duplicates != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestLoad_LanguageFilter(t *testing.T) {
	root := newTree(t)
	c := New(Options{})
	if err := c.Load([]string{root}, []langmeta.Tag{langmeta.Russian}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.SortedKeys(); !reflect.DeepEqual(got, []string{"ALPHA"}) {
		t.Fatalf("SortedKeys() = %v", got)
	}
	item, _ := c.Get("ALPHA")
	if len(item.Values) != 1 || item.Values[0].Language != langmeta.Russian {
		t.Fatalf("values = %#v", item.Values)
	}
}

func TestLoad_Idempotent(t *testing.T) {
	root := newTree(t)
	c := New(Options{})
	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatal(err)
	}
	firstKeys := append([]string(nil), c.SortedKeys()...)
	first := map[string][]Value{}
	for _, k := range firstKeys {
		it, _ := c.Get(k)
		first[k] = append([]Value(nil), it.Values...)
	}

	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.SortedKeys(), firstKeys) {
		t.Fatalf("keys changed after reload: %v vs %v", c.SortedKeys(), firstKeys)
	}
	for _, k := range firstKeys {
		it, _ := c.Get(k)
		if !reflect.DeepEqual(it.Values, first[k]) {
			t.Fatalf("values of %s changed after reload: %#v vs %#v", k, it.Values, first[k])
		}
	}
}

func TestLoad_ReloadReplacesState(t *testing.T) {
	root := newTree(t)
	c := New(Options{})
	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatal(err)
	}
	_ = c.SortedKeys()

	only := filepath.Join(root, "english", "b_l_english.yml")
	if err := c.Load([]string{only}, nil); err != nil {
		t.Fatal(err)
	}
	if got := c.SortedKeys(); !reflect.DeepEqual(got, []string{"MID"}) {
		t.Fatalf("SortedKeys() after reload = %v", got)
	}
	if _, ok := c.Get("ALPHA"); ok {
		t.Fatal("ALPHA should be gone after reload")
	}
}

func TestLoad_MalformedHeaderKeepsPreviousState(t *testing.T) {
	root := newTree(t)
	c := New(Options{})
	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "zzz", "broken_l_english.yml"), "english:\n K: \"v\"\n")
	err := c.Load([]string{root}, nil)
	if !errors.Is(err, locfile.ErrMalformedHeader) {
		t.Fatalf("Load error = %v, want ErrMalformedHeader", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d after failed load, want previous 3", c.Len())
	}
}

func TestLoad_SuffixFilter(t *testing.T) {
	root := newTree(t)
	// Would fail the load if it were parsed.
	writeFile(t, filepath.Join(root, "readme.md"), "# Readme\n")

	c := New(Options{Filter: SuffixFilter})
	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	c = New(Options{})
	if err := c.Load([]string{root}, nil); !errors.Is(err, locfile.ErrMalformedHeader) {
		t.Fatalf("Load without filter error = %v, want ErrMalformedHeader", err)
	}
}

func TestLoad_DuplicatesAccumulate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "1_l_english.yml"), "l_english:\n KEY: \"first\"\n")
	writeFile(t, filepath.Join(root, "2_l_english.yml"), "l_english:\n KEY: \"second\"\n")

	c := New(Options{})
	if err := c.Load([]string{root}, nil); err != nil {
		t.Fatal(err)
	}
	item, _ := c.Get("KEY")
	if len(item.Values) != 2 {
		t.Fatalf("values = %#v", item.Values)
	}
	if orig, _ := item.Original(); orig.Text != "first" {
		t.Errorf("Original() = %q, want first", orig.Text)
	}
	if c.Stats().Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", c.Stats().Duplicates)
	}
}

func TestLoad_MultiplePathsAndMissingPath(t *testing.T) {
	root := newTree(t)
	c := New(Options{})
	paths := []string{
		filepath.Join(root, "russian"),
		filepath.Join(root, "does-not-exist"),
		filepath.Join(root, "english"),
	}
	if err := c.Load(paths, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	item, _ := c.Get("ALPHA")
	if orig, _ := item.Original(); orig.Language != langmeta.Russian {
		t.Errorf("first value language = %q, want russian (load order)", orig.Language)
	}
}

func TestLoad_NewlineOption(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "x_l_english.yml")
	writeFile(t, path, "l_english:\n KEY: \"a\\nb\"\n")

	c := New(Options{Parse: locfile.Options{UnescapeNewlines: true}})
	if err := c.Load([]string{path}, nil); err != nil {
		t.Fatal(err)
	}
	item, _ := c.Get("KEY")
	if item.Values[0].Text != "a\nb" {
		t.Errorf("text = %q", item.Values[0].Text)
	}
}
