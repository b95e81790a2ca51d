// Package i18n translates stltrans's own user-facing messages.
//
// Catalogs are gettext .po files embedded from locales/<lang>/LC_MESSAGES/
// and read with gotext. Untranslated strings pass through unchanged.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var locales embed.FS

const domain = "stltrans"

// langEnv overrides the locale detected from the gettext variables.
const langEnv = "STLTRANS_LANG"

var (
	po   *gotext.Locale
	lang = "en"
)

// Init loads the catalog for l. If l is empty the language is detected
// from STLTRANS_LANG, then LANGUAGE, LC_ALL, LC_MESSAGES and LANG.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l

	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the locale passed to, or detected by, Init.
func Language() string {
	return lang
}

// T translates msgid.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

func detectLanguage() string {
	for _, env := range []string{langEnv, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated preference list.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// ru_RU.UTF-8 -> ru_RU
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
