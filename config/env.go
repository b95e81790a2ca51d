package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STLTRANS_"

// loadDotEnv reads <root>/.env into the process environment. Variables that
// are already set win over the file.
func loadDotEnv(root string) error {
	path := filepath.Join(root, EnvFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Loaded environment file")
	return nil
}

// applyEnv overrides file values with STLTRANS_* variables.
func (c *Config) applyEnv() error {
	c.Name = getEnv("NAME", c.Name)
	c.DataFile = getEnv("DATA_FILE", c.DataFile)
	c.OutputPath = getEnv("OUTPUT_PATH", c.OutputPath)
	c.TargetLanguage = getEnv("TARGET_LANGUAGE", c.TargetLanguage)
	c.OutputStyle = getEnv("OUTPUT_STYLE", c.OutputStyle)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.SourcePaths = getEnvList("SOURCE_PATHS", c.SourcePaths)
	c.SourceLanguages = getEnvList("SOURCE_LANGUAGES", c.SourceLanguages)

	var err error
	if c.BuildUntranslated, err = getEnvBool("BUILD_UNTRANSLATED", c.BuildUntranslated); err != nil {
		return err
	}
	if c.SuffixFilter, err = getEnvBool("SUFFIX_FILTER", c.SuffixFilter); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "UNESCAPE_NEWLINES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sUNESCAPE_NEWLINES: %w", EnvPrefix, err)
		}
		c.UnescapeNewlines = &b
	}
	if v := os.Getenv(EnvPrefix + "PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		c.Server.Port = n
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

// getEnvList splits a comma-separated variable.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return b, nil
}
