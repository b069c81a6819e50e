package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"stitch/internal/plan"
	"stitch/internal/rewrite"
	"stitch/internal/source"
	"stitch/internal/ui"
)

type applyOutcome struct {
	report *rewrite.Report
	err    error
}

func runApplyWithUI(ctx context.Context, title string, pl *plan.Plan, opts rewrite.Options) (*rewrite.Report, error) {
	events := make(chan rewrite.Event, 256)
	outcomeCh := make(chan applyOutcome, 1)

	files := make([]string, 0, len(pl.Files))
	for _, entry := range pl.Files {
		files = append(files, entry.Path)
	}

	go func() {
		optsCopy := opts
		optsCopy.Progress = rewrite.ChannelSink{Ch: events}
		report, err := rewrite.Plan(ctx, pl, source.NewFileSetWithBase(pl.Root), optsCopy)
		outcomeCh <- applyOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
