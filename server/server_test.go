package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/simon-stellaris-mod/translation-tools/build"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/workspace"
)

const source = "l_english:\n" +
	" FLEET_NAME:0 \"Fleet\"\n" +
	" SHIP_NAME:0 \"Ship\"\n"

func newTestServer(t *testing.T) (*Server, *workspace.Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "mod_l_english.yml")
	if err := os.WriteFile(src, []byte(source), 0644); err != nil {
		t.Fatal(err)
	}
	ws, err := workspace.Open(workspace.Options{
		Name:        "mod",
		SourcePaths: []string{src},
		DataFile:    filepath.Join(dir, "data.jsonl"),
		OutputPath:  filepath.Join(dir, "out"),
		Style:       build.StyleYAML,
	})
	if err != nil {
		t.Fatalf("workspace.Open: %v", err)
	}
	srv := New(ws, Options{DefaultLanguage: langmeta.SimpChinese, AccessLog: io.Discard})
	return srv, ws, dir
}

func do(t *testing.T, srv *Server, method, target, body string) (int, gjson.Result) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("%s %s: Content-Type = %q", method, target, ct)
	}
	raw := rec.Body.Bytes()
	if !gjson.ValidBytes(raw) {
		t.Fatalf("%s %s: invalid JSON body %q", method, target, raw)
	}
	return rec.Code, gjson.ParseBytes(raw)
}

func TestGetLanguages(t *testing.T) {
	srv, _, _ := newTestServer(t)
	code, res := do(t, srv, "GET", "/_/languages", "")
	if code != http.StatusOK || !res.Get("ok").Bool() {
		t.Fatalf("status %d, body %s", code, res.Raw)
	}
	if got := res.Get("data.default").String(); got != "simp_chinese" {
		t.Errorf("default = %q", got)
	}
	if got := res.Get("data.languages.#").Int(); got != 10 {
		t.Errorf("%d languages, want 10", got)
	}
}

func TestGetKeys(t *testing.T) {
	srv, ws, _ := newTestServer(t)
	if err := ws.SetTranslation("SHIP_NAME", langmeta.SimpChinese, "舰船", false); err != nil {
		t.Fatal(err)
	}

	code, res := do(t, srv, "GET", "/_/keys", "")
	if code != http.StatusOK {
		t.Fatalf("status %d, body %s", code, res.Raw)
	}
	if got := res.Get("data.language").String(); got != "simp_chinese" {
		t.Errorf("language = %q, want default", got)
	}
	if got := res.Get("data.new.0").String(); got != "FLEET_NAME" {
		t.Errorf("new[0] = %q", got)
	}
	if got := res.Get("data.done.0").String(); got != "SHIP_NAME" {
		t.Errorf("done[0] = %q", got)
	}
	if !res.Get("data.skipped").IsArray() || res.Get("data.skipped.#").Int() != 0 {
		t.Errorf("skipped = %s, want []", res.Get("data.skipped").Raw)
	}
	if got := res.Get("data.counts.new").Int(); got != 1 {
		t.Errorf("counts.new = %d", got)
	}

	code, res = do(t, srv, "GET", "/_/keys?language=klingon", "")
	if code != http.StatusBadRequest || res.Get("ok").Bool() {
		t.Errorf("unknown language: status %d, body %s", code, res.Raw)
	}
}

func TestTranslationRoundTrip(t *testing.T) {
	srv, ws, _ := newTestServer(t)

	code, res := do(t, srv, "POST", "/_/translation", `{"key":"FLEET_NAME","value":"Flotte","language":"german"}`)
	if code != http.StatusOK {
		t.Fatalf("submit: status %d, body %s", code, res.Raw)
	}
	if got := res.Get("data.state").String(); got != "done" {
		t.Errorf("state = %q, want done", got)
	}

	code, res = do(t, srv, "GET", "/_/translation?key=FLEET_NAME&language=german", "")
	if code != http.StatusOK {
		t.Fatalf("get: status %d, body %s", code, res.Raw)
	}
	if got := res.Get("data.translation.value").String(); got != "Flotte" {
		t.Errorf("translation.value = %q", got)
	}
	if got := res.Get("data.source.values.0.value").String(); got != "Fleet" {
		t.Errorf("source value = %q", got)
	}

	// Empty value without skip deletes the record.
	code, _ = do(t, srv, "POST", "/_/translation", `{"key":"FLEET_NAME","value":null,"language":"german"}`)
	if code != http.StatusOK {
		t.Fatalf("delete: status %d", code)
	}
	if _, ok := ws.GetTranslation("FLEET_NAME", langmeta.German); ok {
		t.Error("record not deleted")
	}

	// Empty value with skip records a skip decision.
	code, res = do(t, srv, "POST", "/_/translation", `{"key":"FLEET_NAME","value":"","skipped":true}`)
	if code != http.StatusOK {
		t.Fatalf("skip: status %d, body %s", code, res.Raw)
	}
	if got := res.Get("data.state").String(); got != "skipped" {
		t.Errorf("state = %q, want skipped", got)
	}
	if rec, ok := ws.GetTranslation("FLEET_NAME", langmeta.SimpChinese); !ok || !rec.Skipped {
		t.Errorf("default-language skip record = %+v, %v", rec, ok)
	}
}

func TestTranslationErrors(t *testing.T) {
	srv, _, _ := newTestServer(t)
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"get without key", "GET", "/_/translation", "", http.StatusBadRequest},
		{"get unknown key", "GET", "/_/translation?key=NOPE", "", http.StatusNotFound},
		{"get bad language", "GET", "/_/translation?key=FLEET_NAME&language=xx", "", http.StatusBadRequest},
		{"post bad json", "POST", "/_/translation", "{", http.StatusBadRequest},
		{"post without key", "POST", "/_/translation", `{"value":"x"}`, http.StatusBadRequest},
		{"post non-string value", "POST", "/_/translation", `{"key":"FLEET_NAME","value":5}`, http.StatusBadRequest},
		{"post unknown key", "POST", "/_/translation", `{"key":"NOPE","value":"x"}`, http.StatusNotFound},
		{"unknown route", "GET", "/_/nothing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, res := do(t, srv, tt.method, tt.target, tt.body)
			if code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", code, tt.want, res.Raw)
			}
			if res.Get("ok").Bool() || res.Get("message").String() == "" {
				t.Fatalf("expected error envelope, got %s", res.Raw)
			}
		})
	}
}

func TestSaveAndBuild(t *testing.T) {
	srv, ws, dir := newTestServer(t)
	if err := ws.SetTranslation("FLEET_NAME", langmeta.SimpChinese, "舰队", false); err != nil {
		t.Fatal(err)
	}

	code, res := do(t, srv, "POST", "/_/save", "")
	if code != http.StatusOK {
		t.Fatalf("save: status %d, body %s", code, res.Raw)
	}
	if _, err := os.Stat(filepath.Join(dir, "data.jsonl")); err != nil {
		t.Fatalf("data file not written: %v", err)
	}

	code, res = do(t, srv, "POST", "/_/save_and_build", "")
	if code != http.StatusOK {
		t.Fatalf("save_and_build: status %d, body %s", code, res.Raw)
	}
	want := filepath.Join(dir, "out", "replace", "simp_chinese", "mod_l_simp_chinese.yml")
	if got := res.Get("data.files.0").String(); got != want {
		t.Errorf("files[0] = %q, want %q", got, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("舰队")) {
		t.Errorf("built file missing translation:\n%s", data)
	}
}

func TestReload(t *testing.T) {
	srv, _, dir := newTestServer(t)
	extra := source + " NEW_KEY:0 \"New\"\n"
	if err := os.WriteFile(filepath.Join(dir, "mod_l_english.yml"), []byte(extra), 0644); err != nil {
		t.Fatal(err)
	}
	code, res := do(t, srv, "POST", "/_/reload", "")
	if code != http.StatusOK {
		t.Fatalf("reload: status %d, body %s", code, res.Raw)
	}
	if got := res.Get("data.keys").Int(); got != 3 {
		t.Errorf("keys = %d, want 3", got)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/_/languages")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
