// Package server exposes the workspace over a small JSON API used by the
// translation editor.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/workspace"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// DefaultLanguage is used when a request names no language.
	DefaultLanguage langmeta.Tag
	// IncludeUntranslated is passed to builds triggered over HTTP.
	IncludeUntranslated bool
	// AccessLog receives combined-format access log lines. Nil logs through
	// the global zerolog logger.
	AccessLog io.Writer
}

// Server serves the editing API. Requests are handled one at a time.
type Server struct {
	mu     sync.Mutex
	ws     *workspace.Workspace
	opts   Options
	router *mux.Router
}

// New creates a server over ws.
func New(ws *workspace.Workspace, opts Options) *Server {
	if !opts.DefaultLanguage.Valid() {
		opts.DefaultLanguage = langmeta.SimpChinese
	}
	if opts.AccessLog == nil {
		l := log.With().Str("component", "http").Logger()
		opts.AccessLog = &l
	}
	s := &Server{ws: ws, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	api := r.PathPrefix("/_").Subrouter()
	api.HandleFunc("/languages", s.locked(s.getLanguagesHandler)).Methods("GET")
	api.HandleFunc("/keys", s.locked(s.getKeysHandler)).Methods("GET")
	api.HandleFunc("/translation", s.locked(s.getTranslationHandler)).Methods("GET")
	api.HandleFunc("/translation", s.locked(s.submitTranslationHandler)).Methods("POST")
	api.HandleFunc("/save", s.locked(s.saveHandler)).Methods("POST")
	api.HandleFunc("/save_and_build", s.locked(s.saveAndBuildHandler)).Methods("POST")
	api.HandleFunc("/reload", s.locked(s.reloadHandler)).Methods("POST")
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	return r
}

// locked serialises access to the workspace.
func (s *Server) locked(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		f(w, r)
	}
}

func setJSONHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h.ServeHTTP(w, r)
	})
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return handlers.CombinedLoggingHandler(s.opts.AccessLog, setJSONHeaders(s.router))
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
