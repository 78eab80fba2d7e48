package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a one-shot command
type RunnerConfig struct {
	Title     string  // e.g., "Image Generation"
	Command   string  // e.g., "imagegen generate"
	Params    []Field // shown in the header
	StepNames []string
	Output    io.Writer // default: os.Stdout

	// Hint returns troubleshooting text for a failure, see apiclient.GetTroubleshootingHint
	Hint func(error) string
}

// Task is the body of a one-shot command. It reports progress through
// onStep and returns the details for the success box.
type Task func(ctx context.Context, onStep StepCallback) ([]Field, error)

// Runner prints header, step lines and a final result box around a Task
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	out      io.Writer
	width    int
}

// NewRunner creates a runner for a one-shot command
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress: NewProgress(config.StepNames...).SetWidth(width),
		out:      config.Output,
		width:    width,
	}
}

// Run executes task and prints the result. The task's error is returned.
func (r *Runner) Run(ctx context.Context, task Task) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.out, r.header.Render())
	_, _ = fmt.Fprintln(r.out)

	details, err := task(ctx, r.onStep)
	elapsed := time.Since(start).Round(time.Millisecond)

	_, _ = fmt.Fprintln(r.out)
	if err != nil {
		var tips []string
		if r.config.Hint != nil {
			tips = TroubleshootingLines(r.config.Hint(err))
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		_, _ = fmt.Fprintln(r.out, result.Render())
		return err
	}

	result := NewSuccessResult(r.config.Title+" complete", details...).
		AddDetail("Duration", elapsed.String()).
		SetWidth(r.width)
	_, _ = fmt.Fprintln(r.out, result.Render())
	return nil
}

func (r *Runner) onStep(number int, status StepStatus, message string) {
	r.progress.UpdateStep(number, status, message)
	if number < 1 || number > r.progress.Total() {
		return
	}
	line := r.progress.RenderStepLine(r.progress.Steps[number-1])
	if status == StepRunning {
		// Overwritten when the step finishes
		_, _ = fmt.Fprint(r.out, line+"\r")
		return
	}
	_, _ = fmt.Fprintln(r.out, line)
}
