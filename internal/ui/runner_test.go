package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunnerSuccess(t *testing.T) {
	var out bytes.Buffer
	runner := NewRunner(RunnerConfig{
		Title:     "Image Generation",
		Command:   "imagegen generate",
		Params:    []Field{{Key: "Prompt", Value: "cat"}},
		StepNames: []string{"Load config", "Generate"},
		Output:    &out,
	})

	err := runner.Run(context.Background(), func(ctx context.Context, onStep StepCallback) ([]Field, error) {
		onStep(1, StepRunning, "")
		onStep(1, StepComplete, "")
		onStep(2, StepComplete, "1 result")
		return []Field{{Key: "Results", Value: "1"}}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{"IMAGE GENERATION", "imagegen generate", "Load config", "(1 result)", "SUCCESS", "Duration:"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if runner.progress.Percent != 1 {
		t.Errorf("Percent = %v, want 1", runner.progress.Percent)
	}
}

func TestRunnerFailure(t *testing.T) {
	var out bytes.Buffer
	boom := errors.New("boom")
	runner := NewRunner(RunnerConfig{
		Title:     "Image Generation",
		StepNames: []string{"Generate"},
		Output:    &out,
		Hint: func(err error) string {
			return "Troubleshooting:\n  • Start the gateway"
		},
	})

	err := runner.Run(context.Background(), func(ctx context.Context, onStep StepCallback) ([]Field, error) {
		onStep(1, StepFailed, "")
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}

	text := out.String()
	if !strings.Contains(text, "FAILED") || !strings.Contains(text, "Start the gateway") {
		t.Errorf("output = %q", text)
	}
}
