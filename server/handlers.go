package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/simon-stellaris-mod/translation-tools/diff"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/store"
)

var errBadRequest = errors.New("bad request")

type okResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type errorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, data any) {
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(okResponse{OK: true, Data: data}); err != nil {
		log.Error().Err(err).Msg("Encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Message: err.Error()}); err != nil {
		log.Error().Err(err).Msg("Encoding response")
	}
}

// check writes err with a status derived from its kind and reports whether
// there was an error.
func check(w http.ResponseWriter, err error) (hadError bool) {
	if err == nil {
		return false
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, langmeta.ErrUnknownLanguage):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrSourceKeyNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeError(w, status, err)
	return true
}

// language resolves the requested language, falling back to the default.
func (s *Server) language(name string) (langmeta.Tag, error) {
	if name == "" {
		return s.opts.DefaultLanguage, nil
	}
	return langmeta.Parse(name)
}

// GET /_/languages
func (s *Server) getLanguagesHandler(w http.ResponseWriter, r *http.Request) {
	writeData(w, NewLanguages(s.opts.DefaultLanguage))
}

// GET /_/keys?language=
func (s *Server) getKeysHandler(w http.ResponseWriter, r *http.Request) {
	lang, err := s.language(r.URL.Query().Get("language"))
	if check(w, err) {
		return
	}
	writeData(w, NewKeys(lang, s.ws.Classify(lang)))
}

// GET /_/translation?key=&language=
func (s *Server) getTranslationHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		check(w, fmt.Errorf("%w: key is required", errBadRequest))
		return
	}
	lang, err := s.language(q.Get("language"))
	if check(w, err) {
		return
	}

	if _, ok := s.ws.Source(key); !ok {
		check(w, fmt.Errorf("%w: %s", store.ErrSourceKeyNotFound, key))
		return
	}
	writeData(w, s.view(key, lang))
}

func (s *Server) view(key string, lang langmeta.Tag) TranslationView {
	v := TranslationView{Key: key, Language: string(lang)}
	item, hasItem := s.ws.Source(key)
	rec, hasRecord := s.ws.GetTranslation(key, lang)
	if hasItem {
		v.Source = NewSource(item)
		if state, ok := diff.StateOf(item, rec, hasRecord); ok {
			v.State = state.String()
		}
	}
	if hasRecord {
		v.Translation = NewTranslation(rec)
	}
	return v
}

// POST /_/translation
func (s *Server) submitTranslationHandler(w http.ResponseWriter, r *http.Request) {
	var sub submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		check(w, fmt.Errorf("%w: could not decode request (%v)", errBadRequest, err))
		return
	}
	if sub.Key == "" {
		check(w, fmt.Errorf("%w: key is required", errBadRequest))
		return
	}
	lang, err := s.language(sub.Language)
	if check(w, err) {
		return
	}

	value := ""
	if sub.Value != nil {
		value = *sub.Value
	}
	if value == "" && !sub.Skipped {
		s.ws.DeleteTranslation(sub.Key, lang)
	} else if check(w, s.ws.SetTranslation(sub.Key, lang, value, sub.Skipped)) {
		return
	}
	writeData(w, s.view(sub.Key, lang))
}

// POST /_/save
func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request) {
	if check(w, s.ws.Save()) {
		return
	}
	writeData(w, Saved{Summary: s.ws.Store().Summary()})
}

// POST /_/save_and_build
func (s *Server) saveAndBuildHandler(w http.ResponseWriter, r *http.Request) {
	if check(w, s.ws.Save()) {
		return
	}
	files, err := s.ws.BuildFiles(s.opts.IncludeUntranslated)
	if check(w, err) {
		return
	}
	writeData(w, Saved{Summary: s.ws.Store().Summary(), Files: files})
}

// POST /_/reload
func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if check(w, s.ws.Reload()) {
		return
	}
	st := s.ws.Corpus().Stats()
	writeData(w, Reloaded{Files: st.Files, Keys: st.Keys, Duplicates: st.Duplicates})
}
