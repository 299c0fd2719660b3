// Package ui is the interactive terminal surface of the report workflow.
// It renders the current workflow snapshot and only offers the actions the
// state machine allows from that state.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"codereport/internal/render"
	"codereport/internal/workflow"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/maxbolgarin/logze/v2"
)

const (
	actionFetch    = "Fetch commits"
	actionGenerate = "Generate report"
	actionExport   = "Export report"
	actionQuit     = "Quit"
)

// Session runs the workflow loop for one user.
type Session struct {
	wf       *workflow.Workflow
	exporter workflow.Exporter
	username string
	out      io.Writer
	log      logze.Logger
}

// New creates an interactive session.
func New(wf *workflow.Workflow, exporter workflow.Exporter, username string) *Session {
	return &Session{
		wf:       wf,
		exporter: exporter,
		username: username,
		out:      os.Stdout,
		log:      logze.With("module", "ui"),
	}
}

// Run drives the fetch -> generate -> export loop until the user quits. The
// prompt blocks while an operation is in flight, so the same operation
// cannot be re-submitted before it completes.
func (s *Session) Run(ctx context.Context) error {
	color.New(color.FgCyan, color.Bold).Fprintf(s.out, "Code Report Generator — logged in as %s\n", s.username)

	for {
		var choice string
		prompt := &survey.Select{
			Message: "What next?",
			Options: s.availableActions(),
		}
		// A prompt error means the terminal went away or the user
		// interrupted; either way the session is over.
		if err := survey.AskOne(prompt, &choice); err != nil {
			return nil
		}

		switch choice {
		case actionFetch:
			s.fetch(ctx)
		case actionGenerate:
			s.generate(ctx)
		case actionExport:
			s.export()
		case actionQuit:
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (s *Session) availableActions() []string {
	snap := s.wf.Snapshot()

	actions := []string{actionFetch}
	if snap.State == workflow.StateCommitsReady && len(snap.Commits) > 0 {
		actions = append(actions, actionGenerate)
	}
	if snap.State == workflow.StateReportReady {
		actions = append(actions, actionExport)
	}
	return append(actions, actionQuit)
}

func (s *Session) fetch(ctx context.Context) {
	var duration string
	prompt := &survey.Input{
		Message: "Duration in days (e.g. 7 or 14):",
		Default: s.wf.Snapshot().Duration,
	}
	if err := survey.AskOne(prompt, &duration); err != nil {
		return
	}

	fmt.Fprintln(s.out, "Fetching commits...")
	if err := s.wf.Submit(ctx, duration); err != nil {
		s.fail(err)
		return
	}
	s.showCommits()
}

func (s *Session) generate(ctx context.Context) {
	fmt.Fprintln(s.out, "Generating report...")
	if err := s.wf.Generate(ctx); err != nil {
		s.fail(err)
		return
	}
	s.showReport()
}

func (s *Session) export() {
	path, err := s.wf.Export(s.exporter)
	if err != nil {
		s.fail(err)
		return
	}
	color.New(color.FgGreen).Fprintf(s.out, "Report saved to %s\n", path)
}

func (s *Session) showCommits() {
	snap := s.wf.Snapshot()
	if len(snap.Commits) == 0 {
		color.New(color.FgYellow).Fprintln(s.out, "No commits found for the given duration.")
		return
	}

	color.New(color.Bold).Fprintf(s.out, "\nCommits (%d)\n\n", len(snap.Commits))
	for _, commit := range snap.Commits {
		color.New(color.Bold).Fprintf(s.out, "  %s\n", commit.Message)
		fmt.Fprintf(s.out, "    %s | %s | %s\n", commit.Repo, commit.Date,
			render.FormatLOC(commit.Additions, commit.Deletions))
	}
	fmt.Fprintln(s.out)
}

func (s *Session) showReport() {
	snap := s.wf.Snapshot()
	if snap.Report == nil {
		return
	}

	if snap.Report.Summary != "" {
		color.New(color.FgGreen, color.Bold).Fprintf(s.out, "\nSummary: %s\n", snap.Report.Summary)
	}

	color.New(color.Bold).Fprintf(s.out, "\nElaborated Report (%d commits)\n\n", len(snap.Report.ElaboratedCommits))
	for _, item := range snap.Report.ElaboratedCommits {
		color.New(color.Bold).Fprintf(s.out, "  Original:    %s\n", item.Original)
		fmt.Fprintf(s.out, "  Elaboration: %s\n", item.Elaboration)
		fmt.Fprintf(s.out, "  %s | %s | %s\n", item.Repo, item.Date,
			render.FormatLOC(item.Additions, item.Deletions))
		for _, line := range render.DistributionLines(item.LanguageDistribution) {
			fmt.Fprintf(s.out, "    %s\n", line)
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Session) fail(err error) {
	s.log.Error("action failed", "error", err)
	color.New(color.FgRed, color.Bold).Fprintf(s.out, "Error: %s\n", err)
}
