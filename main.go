// stltrans is a translation toolkit for Paradox-style mod localisation files.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simon-stellaris-mod/translation-tools/config"
	"github.com/simon-stellaris-mod/translation-tools/i18n"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/server"
	"github.com/simon-stellaris-mod/translation-tools/workspace"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.Bold, color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.Bold, color.FgCyan).SprintFunc()
)

func logInfo(format string, args ...any) {
	log.Info().Msgf(format, args...)
}

func logSuccess(format string, args ...any) {
	log.Info().Msg(green("✓") + " " + fmt.Sprintf(format, args...))
}

func logWarning(format string, args ...any) {
	log.Warn().Msgf(format, args...)
}

func logError(format string, args ...any) {
	log.Error().Msgf(format, args...)
}

func setupLogger(verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stltrans",
		Short: "Translation toolkit for Paradox mod localisation files",
		Long: `stltrans: translation toolkit for Paradox mod localisation files.

Reads a mod's l_<language>.yml sources, keeps translations in a
line-oriented JSON data file and builds replacement localisation files.

Commands:
  status      Show translation progress per language
  build       Write localisation files from the translation data
  auto-skip   Mark keys whose value only references another key as skipped
  prune       Remove translations whose key no longer exists in the source
  serve       Run the HTTP editing API

Settings are read from .stltrans.yaml in the project root, then .env and
STLTRANS_* environment variables, then command-line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(verbose)
			i18n.Init("")
			log.Debug().Str("locale", i18n.Language()).Msg("Message catalog loaded")
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newStatusCmd(),
		newBuildCmd(),
		newAutoSkipCmd(),
		newPruneCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	setupLogger(false)
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stltrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Project loading
// ---------------------------------------------------------------------------

// loadConfig reads the project configuration and applies flag overrides.
func loadConfig(o *projectFlags) (*config.Config, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	return cfg, nil
}

// openWorkspace loads the source corpus and translation data.
func openWorkspace(cfg *config.Config) (*workspace.Workspace, error) {
	opts, err := cfg.Workspace()
	if err != nil {
		if errors.Is(err, config.ErrMissingField) {
			return nil, fmt.Errorf("%w (set it in %s, the environment or flags)", err, config.FileName)
		}
		return nil, err
	}
	ws, err := workspace.Open(opts)
	if err != nil {
		return nil, err
	}
	st := ws.Corpus().Stats()
	logInfo(i18n.T("Loaded %d source keys from %d files"), st.Keys, st.Files)
	if st.Duplicates > 0 {
		logWarning(i18n.N("%d duplicate key found in the source", "%d duplicate keys found in the source", st.Duplicates), st.Duplicates)
	}
	log.Debug().Str("store", ws.Store().Summary()).Msg("Translation data loaded")
	return ws, nil
}

// targetLanguage returns the flag value if set, otherwise the configured
// default target language.
func targetLanguage(cfg *config.Config, lang langmeta.Tag) (langmeta.Tag, error) {
	if lang != "" {
		return lang, nil
	}
	return cfg.Target()
}

// ---------------------------------------------------------------------------
// build
// ---------------------------------------------------------------------------

func newBuildCmd() *cobra.Command {
	var o projectFlags
	var includeUntranslated, check bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write localisation files from the translation data",
		Long: `Write one localisation file per translated language to
<output>/replace/<language>/<name>_l_<language>.yml.

Only translated keys are written unless --build-untranslated is given, in
which case untranslated keys carry the source text. With --check the
written files are read back and compared against the translation data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("build-untranslated") {
				cfg.BuildUntranslated = includeUntranslated
			}
			return runBuild(cfg, check)
		},
	}

	o.register(cmd, true)
	cmd.Flags().BoolVar(&includeUntranslated, "build-untranslated", false, "Include untranslated keys using the source text")
	cmd.Flags().BoolVar(&check, "check", false, "Read the written files back and verify their contents")
	return cmd
}

func runBuild(cfg *config.Config, check bool) error {
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	if len(ws.Store().Languages()) == 0 {
		logWarning(i18n.T("Nothing to build: the translation data is empty"))
		return nil
	}
	paths, err := ws.BuildFiles(cfg.BuildUntranslated)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logSuccess(i18n.T("Wrote %s"), p)
	}
	if check {
		if err := ws.CheckFiles(cfg.BuildUntranslated); err != nil {
			return err
		}
		logSuccess(i18n.N("Verified %d file", "Verified %d files", len(paths)), len(paths))
	}
	return nil
}

// ---------------------------------------------------------------------------
// auto-skip
// ---------------------------------------------------------------------------

func newAutoSkipCmd() *cobra.Command {
	var o projectFlags
	var lang langmeta.Tag
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "auto-skip",
		Short: "Mark keys whose value only references another key as skipped",
		Long: `Mark every new or changed key whose source value is just a reference
to another key (for example "$OTHER_KEY$") as skipped for the target
language, then save the translation data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			return runAutoSkip(cfg, lang, dryRun)
		},
	}

	o.register(cmd, false)
	cmd.Flags().VarP(newLanguageValue(&lang), "language", "l", "Target language (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without saving")
	return cmd
}

func runAutoSkip(cfg *config.Config, flagLang langmeta.Tag, dryRun bool) error {
	lang, err := targetLanguage(cfg, flagLang)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}

	logInfo(i18n.T("Before: %s"), formatCounts(ws.Classify(lang).Counts()))
	n, err := ws.AutoSkip(lang)
	if err != nil {
		return err
	}
	logInfo(i18n.N("Found %d new skipped key", "Found %d new skipped keys", n), n)

	if dryRun {
		return nil
	}
	if err := ws.Save(); err != nil {
		return err
	}
	logSuccess(i18n.T("Translation data saved"))
	logInfo(i18n.T("After: %s"), formatCounts(ws.Classify(lang).Counts()))
	return nil
}

// formatCounts renders diff counts in workflow order.
func formatCounts(c map[string]int) string {
	parts := make([]string, 0, 4)
	for _, state := range []string{"new", "changed", "done", "skipped"} {
		parts = append(parts, fmt.Sprintf("%s [%d]", state, c[state]))
	}
	return strings.Join(parts, " ")
}

// ---------------------------------------------------------------------------
// prune
// ---------------------------------------------------------------------------

func newPruneCmd() *cobra.Command {
	var o projectFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove translations whose key no longer exists in the source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cfg)
			if err != nil {
				return err
			}
			n := ws.Prune()
			logInfo(i18n.N("Removed %d stale record", "Removed %d stale records", n), n)
			if dryRun || n == 0 {
				return nil
			}
			if err := ws.Save(); err != nil {
				return err
			}
			logSuccess(i18n.T("Translation data saved"))
			return nil
		},
	}

	o.register(cmd, false)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without saving")
	return cmd
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var o projectFlags
	var host string
	var port int
	var lang langmeta.Tag

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP editing API",
		Long: `Serve the JSON editing API under /_/ until interrupted.

Routes:
  GET  /_/languages
  GET  /_/keys?language=
  GET  /_/translation?key=&language=
  POST /_/translation
  POST /_/save
  POST /_/save_and_build
  POST /_/reload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if lang != "" {
				cfg.TargetLanguage = string(lang)
			}
			return runServe(cfg)
		},
	}

	o.register(cmd, true)
	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Listen host")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Listen port")
	cmd.Flags().VarP(newLanguageValue(&lang), "language", "l", "Default target language (default from config)")
	return cmd
}

func runServe(cfg *config.Config) error {
	def, err := cfg.Target()
	if err != nil {
		return err
	}
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(ws, server.Options{
		DefaultLanguage:     def,
		IncludeUntranslated: cfg.BuildUntranslated,
	})
	logInfo(i18n.T("Serving %s on http://%s/"), cyan(cfg.Name), cfg.Addr())
	if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
		return err
	}
	logInfo(i18n.T("Server stopped"))
	return nil
}
