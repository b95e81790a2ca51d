// Package config loads the project configuration from .stltrans.yaml,
// an optional .env file and STLTRANS_* environment variables.
//
// Precedence, lowest first: built-in defaults, .stltrans.yaml, environment
// (including .env). Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/simon-stellaris-mod/translation-tools/build"
	"github.com/simon-stellaris-mod/translation-tools/corpus"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/locfile"
	"github.com/simon-stellaris-mod/translation-tools/workspace"
)

// FileName is the default config file name.
const FileName = ".stltrans.yaml"

// EnvFileName is the dotenv file read from the project root.
const EnvFileName = ".env"

// Defaults.
const (
	DefaultTargetLanguage = langmeta.SimpChinese
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8080
)

// ErrMissingField is returned by Validate when a required setting is empty.
var ErrMissingField = errors.New("missing required field")

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the .stltrans.yaml structure.
type Config struct {
	// Name is used in build output file names.
	Name string `yaml:"name"`
	// SourcePaths are files or directories holding the mod's source
	// localisation, relative to the project root.
	SourcePaths []string `yaml:"source_paths"`
	// SourceLanguages restricts which source files are loaded. Empty loads all.
	SourceLanguages []string `yaml:"source_languages,omitempty"`
	// DataFile is the translation store (JSON lines).
	DataFile string `yaml:"data_file"`
	// OutputPath is the build output root; files go to <output>/replace/<lang>/.
	OutputPath string `yaml:"output_path"`
	// TargetLanguage is the default language for the server and commands.
	TargetLanguage string `yaml:"target_language,omitempty"`
	// BuildUntranslated includes untranslated keys (with source text) in builds.
	BuildUntranslated bool `yaml:"build_untranslated,omitempty"`
	// UnescapeNewlines decodes \n in source values (default true).
	UnescapeNewlines *bool `yaml:"unescape_newlines,omitempty"`
	// SuffixFilter only parses files named *_l_<language>.yml in directories.
	SuffixFilter bool `yaml:"suffix_filter,omitempty"`
	// OutputStyle is "yaml" (default) or "native".
	OutputStyle string `yaml:"output_style,omitempty"`
	// Server configures the HTTP editing API.
	Server Server `yaml:"server,omitempty"`

	root string
}

// Server holds the HTTP listener settings.
type Server struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the configuration for the project rooted at rootDir. A missing
// .stltrans.yaml is not an error; the returned config then only carries
// environment values and defaults, and Validate reports what is missing.
func Load(rootDir string) (*Config, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(absRoot); err != nil {
		return nil, err
	}

	cfg := &Config{}
	path := filepath.Join(absRoot, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Debug().Str("path", path).Msg("No config file found, using environment")
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.root = absRoot
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TargetLanguage == "" {
		c.TargetLanguage = string(DefaultTargetLanguage)
	}
	if c.UnescapeNewlines == nil {
		on := true
		c.UnescapeNewlines = &on
	}
	if c.OutputStyle == "" {
		c.OutputStyle = string(build.StyleYAML)
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
}

// Validate checks required fields and enumerated values.
func (c *Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name", ErrMissingField)
	case len(c.SourcePaths) == 0:
		return fmt.Errorf("%w: source_paths", ErrMissingField)
	case c.DataFile == "":
		return fmt.Errorf("%w: data_file", ErrMissingField)
	case c.OutputPath == "":
		return fmt.Errorf("%w: output_path", ErrMissingField)
	}
	if _, err := langmeta.ParseList(c.SourceLanguages); err != nil {
		return fmt.Errorf("source_languages: %w", err)
	}
	if _, err := langmeta.Parse(c.TargetLanguage); err != nil {
		return fmt.Errorf("target_language: %w", err)
	}
	if _, err := build.ParseStyle(c.OutputStyle); err != nil {
		return fmt.Errorf("output_style: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// Root returns the absolute project root.
func (c *Config) Root() string {
	return c.root
}

// Abs resolves p against the project root.
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// Target returns the default target language.
func (c *Config) Target() (langmeta.Tag, error) {
	return langmeta.Parse(c.TargetLanguage)
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Workspace validates the config and converts it into workspace options
// with absolute paths.
func (c *Config) Workspace() (workspace.Options, error) {
	if err := c.Validate(); err != nil {
		return workspace.Options{}, err
	}
	langs, _ := langmeta.ParseList(c.SourceLanguages)
	style, _ := build.ParseStyle(c.OutputStyle)

	paths := make([]string, len(c.SourcePaths))
	for i, p := range c.SourcePaths {
		paths[i] = c.Abs(p)
	}

	opts := workspace.Options{
		Name:            c.Name,
		SourcePaths:     paths,
		SourceLanguages: langs,
		DataFile:        c.Abs(c.DataFile),
		OutputPath:      c.Abs(c.OutputPath),
		Style:           style,
		Corpus: corpus.Options{
			Parse: locfile.Options{UnescapeNewlines: c.UnescapeNewlines == nil || *c.UnescapeNewlines},
		},
	}
	if c.SuffixFilter {
		opts.Corpus.Filter = corpus.SuffixFilter
	}
	return opts, nil
}
