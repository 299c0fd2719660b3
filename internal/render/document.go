// Package render turns a generated report into a self-contained formatted
// document and saves it as a local file.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codereport/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

const (
	defaultOutputDir = "."

	filenamePrefix = "Code_Report_"
	filenameExt    = ".txt"
)

// Config represents document export configuration.
type Config struct {
	OutputDir string `yaml:"output_dir" env:"EXPORT_OUTPUT_DIR"`
}

func (cfg *Config) PrepareAndValidate() error {
	cfg.OutputDir = lang.Check(cfg.OutputDir, defaultOutputDir)
	return nil
}

// Renderer maps a report to a fixed document layout: one block per
// elaborated commit, concatenated in report order under a single header.
type Renderer struct {
	cfg Config
	log logze.Logger

	now func() time.Time
}

// New creates a renderer writing into the configured output directory.
func New(cfg Config) (*Renderer, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	return &Renderer{
		cfg: cfg,
		log: logze.With("module", "render"),
		now: time.Now,
	}, nil
}

// Export renders the report and saves it under a date-stamped filename.
// It satisfies the workflow's Exporter contract.
func (r *Renderer) Export(report *model.Report) (string, error) {
	generatedAt := r.now()

	doc, err := r.Render(report, generatedAt)
	if err != nil {
		return "", err
	}
	return r.Save(doc, Filename(generatedAt))
}

// Render produces the document content. The output is deterministic for a
// given report and generation instant.
func (r *Renderer) Render(report *model.Report, generatedAt time.Time) ([]byte, error) {
	if report == nil || len(report.ElaboratedCommits) == 0 {
		return nil, model.ErrNothingToExport
	}

	var b strings.Builder
	b.WriteString("CODE REPORT\n")
	b.WriteString("Generated: " + generatedAt.Format("2006-01-02 15:04:05 MST") + "\n")
	b.WriteString(fmt.Sprintf("Commits: %d\n", len(report.ElaboratedCommits)))
	b.WriteString(divider + "\n")

	if report.Summary != "" {
		b.WriteString("\nSUMMARY\n\n")
		b.WriteString(strings.TrimSpace(report.Summary) + "\n\n")
		b.WriteString(divider + "\n")
	}

	for i, commit := range report.ElaboratedCommits {
		b.WriteString("\n")
		writeCommitBlock(&b, i+1, commit)
	}

	return []byte(b.String()), nil
}

// Save writes the document into the output directory and returns the path.
func (r *Renderer) Save(doc []byte, filename string) (string, error) {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return "", errm.Wrap(err, "create output directory")
	}

	path := filepath.Join(r.cfg.OutputDir, filename)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", errm.Wrap(err, "write document")
	}

	r.log.Debug("saved document", "path", path, "size", len(doc))
	return path, nil
}

// Filename returns the export filename for a generation instant:
// Code_Report_<YYYY-MM-DD>.txt. It depends on the instant only, so two
// exports of the same report on different days get different names.
func Filename(generatedAt time.Time) string {
	return filenamePrefix + generatedAt.Format("2006-01-02") + filenameExt
}

const divider = "================================================================"

func writeCommitBlock(b *strings.Builder, n int, commit model.ElaboratedCommit) {
	fmt.Fprintf(b, "Commit %d: %s (%s)\n\n", n, commit.Repo, commit.Date)
	fmt.Fprintf(b, "Original:    %s\n", commit.Original)
	fmt.Fprintf(b, "Elaboration: %s\n", commit.Elaboration)
	fmt.Fprintf(b, "Lines:       %s\n", FormatLOC(commit.Additions, commit.Deletions))

	if len(commit.LOCPerLanguage) > 0 {
		b.WriteString("\n" + locTable(commit.LOCPerLanguage) + "\n")
	}
	if len(commit.LanguageDistribution) > 0 {
		b.WriteString("\nLanguage distribution:\n")
		for _, line := range DistributionLines(commit.LanguageDistribution) {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString("\n" + divider + "\n")
}

func locTable(locs map[string]model.LanguageLOC) string {
	languages := sortedKeys(locs)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Language", "Additions", "Deletions"})
	for _, language := range languages {
		loc := locs[language]
		t.AppendRow(table.Row{
			language,
			fmt.Sprintf("+%d", loc.EstimatedAdditions),
			fmt.Sprintf("-%d", loc.EstimatedDeletions),
		})
	}
	return t.Render()
}

// DistributionLines renders a language distribution as "<lang>: <pct>%"
// lines with exactly two decimal places, in descending percentage order.
// The live view and the exported document both use it, so the two always
// agree on formatting.
func DistributionLines(distribution map[string]float64) []string {
	languages := sortedKeys(distribution)
	sort.SliceStable(languages, func(i, j int) bool {
		return distribution[languages[i]] > distribution[languages[j]]
	})

	lines := make([]string, 0, len(languages))
	for _, language := range languages {
		lines = append(lines, fmt.Sprintf("%s: %.2f%%", language, distribution[language]))
	}
	return lines
}

// FormatLOC renders addition/deletion counts with explicit sign prefixes.
func FormatLOC(additions, deletions int) string {
	return fmt.Sprintf("+%d / -%d", additions, deletions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
