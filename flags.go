package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/simon-stellaris-mod/translation-tools/config"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
)

// languageValue is a pflag.Value accepting one language tag.
type languageValue struct {
	tag *langmeta.Tag
}

func newLanguageValue(p *langmeta.Tag) *languageValue {
	return &languageValue{tag: p}
}

func (v *languageValue) String() string {
	if v.tag == nil {
		return ""
	}
	return string(*v.tag)
}

func (v *languageValue) Set(s string) error {
	t, err := langmeta.Parse(s)
	if err != nil {
		return err
	}
	*v.tag = t
	return nil
}

func (v *languageValue) Type() string {
	return "language"
}

// languageListValue accepts repeated or comma-separated language tags.
type languageListValue struct {
	tags *[]langmeta.Tag
}

func newLanguageListValue(p *[]langmeta.Tag) *languageListValue {
	return &languageListValue{tags: p}
}

func (v *languageListValue) String() string {
	if v.tags == nil {
		return ""
	}
	names := make([]string, len(*v.tags))
	for i, t := range *v.tags {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}

func (v *languageListValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		t, err := langmeta.Parse(part)
		if err != nil {
			return err
		}
		*v.tags = append(*v.tags, t)
	}
	return nil
}

func (v *languageListValue) Type() string {
	return "languages"
}

// projectFlags are the per-command overrides of .stltrans.yaml settings.
type projectFlags struct {
	name            string
	sourcePaths     []string
	sourceLanguages []langmeta.Tag
	dataFile        string
	outputPath      string
	outputStyle     string
	suffixFilter    bool

	flags *pflag.FlagSet
}

func (o *projectFlags) register(cmd *cobra.Command, withOutput bool) {
	f := cmd.Flags()
	f.StringArrayVarP(&o.sourcePaths, "source-path", "s", nil, "Source file or directory (repeatable)")
	f.Var(newLanguageListValue(&o.sourceLanguages), "source-language", "Only load source files of this language (repeatable)")
	f.StringVarP(&o.dataFile, "data-file", "d", "", "Translation data file")
	f.BoolVar(&o.suffixFilter, "suffix-filter", false, "Only parse *_l_<language>.yml files in source directories")
	if withOutput {
		f.StringVarP(&o.name, "name", "n", "", "Name used in output file names")
		f.StringVarP(&o.outputPath, "output-path", "o", "", "Build output directory")
		f.StringVar(&o.outputStyle, "output-style", "", "Output style: yaml or native")
	}
	o.flags = f
}

// apply copies every flag the user set onto cfg.
func (o *projectFlags) apply(cfg *config.Config) {
	if o.flags == nil {
		return
	}
	changed := o.flags.Changed
	if changed("name") {
		cfg.Name = o.name
	}
	if changed("source-path") {
		cfg.SourcePaths = o.sourcePaths
	}
	if changed("source-language") {
		names := make([]string, len(o.sourceLanguages))
		for i, t := range o.sourceLanguages {
			names[i] = string(t)
		}
		cfg.SourceLanguages = names
	}
	if changed("data-file") {
		cfg.DataFile = o.dataFile
	}
	if changed("output-path") {
		cfg.OutputPath = o.outputPath
	}
	if changed("output-style") {
		cfg.OutputStyle = o.outputStyle
	}
	if changed("suffix-filter") {
		cfg.SuffixFilter = o.suffixFilter
	}
}
