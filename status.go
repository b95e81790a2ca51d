package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simon-stellaris-mod/translation-tools/config"
	"github.com/simon-stellaris-mod/translation-tools/diff"
	"github.com/simon-stellaris-mod/translation-tools/i18n"
	"github.com/simon-stellaris-mod/translation-tools/langmeta"
	"github.com/simon-stellaris-mod/translation-tools/workspace"
)

const barWidth = 20

func newStatusCmd() *cobra.Command {
	var o projectFlags
	var lang langmeta.Tag

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show translation progress per language",
		Long: `Show the project settings and, for the target language and every
language present in the translation data, how many source keys are new,
changed, done or skipped. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&o)
			if err != nil {
				return err
			}
			return runStatus(cfg, lang)
		},
	}

	o.register(cmd, false)
	cmd.Flags().VarP(newLanguageValue(&lang), "language", "l", "Only show this language")
	return cmd
}

func runStatus(cfg *config.Config, only langmeta.Tag) error {
	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", cyan(i18n.T("Project")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Name:       %s\n", cfg.Name)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", cfg.Root())
	fmt.Fprintf(os.Stderr, "  Sources:    %s\n", strings.Join(cfg.SourcePaths, ", "))
	fmt.Fprintf(os.Stderr, "  Data file:  %s\n", cfg.Abs(cfg.DataFile))
	fmt.Fprintf(os.Stderr, "  Output:     %s (%s)\n", cfg.Abs(cfg.OutputPath), cfg.OutputStyle)
	fmt.Fprintf(os.Stderr, "  Data:       %s\n", ws.Store().Summary())
	fmt.Fprintln(os.Stderr)

	langs, err := statusLanguages(cfg, ws, only)
	if err != nil {
		return err
	}
	showStatsTable(ws, langs)
	return nil
}

// statusLanguages returns the languages to report in registry order.
func statusLanguages(cfg *config.Config, ws *workspace.Workspace, only langmeta.Tag) ([]langmeta.Tag, error) {
	if only != "" {
		return []langmeta.Tag{only}, nil
	}
	target, err := cfg.Target()
	if err != nil {
		return nil, err
	}
	want := map[langmeta.Tag]bool{target: true}
	for _, l := range ws.Store().Languages() {
		want[l] = true
	}
	var out []langmeta.Tag
	for _, t := range langmeta.Tags() {
		if want[t] {
			out = append(out, t)
		}
	}
	return out, nil
}

func showStatsTable(ws *workspace.Workspace, langs []langmeta.Tag) {
	fmt.Fprintf(os.Stderr, "%s\n", cyan(i18n.T("Translation Statistics")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "\n%-14s %-7s %-8s %-7s %-8s %s\n", "Lang", "New", "Changed", "Done", "Skipped", "Progress")
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 76))

	total := 0
	for _, lang := range langs {
		r := ws.Classify(lang)
		total = r.Total()
		fmt.Fprintf(os.Stderr, "%-14s %-7d %-8d %-7d %-8d %s\n",
			lang, len(r.New), len(r.Changed), len(r.Done), len(r.Skipped),
			progressBar(completion(r), barWidth))
	}

	fmt.Fprintln(os.Stderr, strings.Repeat("─", 76))
	fmt.Fprintf(os.Stderr, "Total keys: %d\n\n", total)
}

// completion returns the share of keys that are done or skipped, in percent.
func completion(r diff.Result) int {
	total := r.Total()
	if total == 0 {
		return 100
	}
	return (len(r.Done) + len(r.Skipped)) * 100 / total
}

// progressBar renders a colored bar followed by the right-aligned percentage.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	paint := red
	switch {
	case percent >= 100:
		paint = green
	case percent >= 50:
		paint = yellow
	}
	return fmt.Sprintf("%s %3d%%", paint(bar), percent)
}
