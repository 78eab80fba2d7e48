// Package ui renders imagegen output for the terminal.
//
// Renderer is the results page: it implements the controller's View and
// draws the query image, the ranked results with their similarity scores,
// the message line and the JSON viewer as plain lipgloss text. The
// interactive app puts that text in a viewport; one-shot commands print it.
//
// Images cannot be drawn in a terminal, so each one is shown as a card with
// its data URI, size and PNG dimensions. SaveImages writes them to disk.
//
// One-shot commands use Runner for the header, step list and result box:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Image Generation",
//	    Command:   "imagegen generate",
//	    Params:    []ui.Field{{Key: "Prompt", Value: prompt}},
//	    StepNames: []string{"Load config", "Generate", "Save images"},
//	    Hint:      apiclient.GetTroubleshootingHint,
//	})
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Field, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ...
//	    return details, nil
//	})
//
// Logging stays silent unless IMAGEGEN_LOG_LEVEL is set, so this output is
// not interleaved with log lines.
package ui
