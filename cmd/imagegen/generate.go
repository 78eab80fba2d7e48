package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/imagegen/internal/apiclient"
	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/state"
	"github.com/muurk/imagegen/internal/ui"
	"github.com/muurk/imagegen/internal/urls"
)

// Generate command flags
var (
	genModel  string
	genIndex  string
	genCount  string
	genPreset string
	genAPI    string
	genSave   string
	genJSON   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate images from a prompt",
	Long: `Generate images from a text prompt and print the results.

The prompt is sent to the gateway with the model, index and result count
from the flags, a preset, or the config file, in that order. The gateway
returns the query image it generated and the closest matches with their
similarity scores.

When the external API returns fewer results than requested, the reply
carries a warning with the number it actually returned.`,
	Example: `  # Generate with the configured defaults
  imagegen generate "a red bicycle in the snow"

  # Pick the model, index and number of results
  imagegen generate "lighthouse at dusk" --model l14_336 --index l2 --count 8

  # Use a preset and save the images
  imagegen generate "a cat reading" --preset fast --save ./out

  # Print only the raw JSON response
  imagegen generate "mountain lake" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genModel, "model", "m", "", "CLIP model ("+strings.Join(protocol.ModelTypes, ", ")+")")
	generateCmd.Flags().StringVarP(&genIndex, "index", "i", "", "Index type ("+strings.Join(protocol.IndexTypes, ", ")+")")
	generateCmd.Flags().StringVarP(&genCount, "count", "n", "", fmt.Sprintf("Number of results (%d-%d)", protocol.MinSearchNum, protocol.MaxSearchNum))
	generateCmd.Flags().StringVarP(&genPreset, "preset", "p", "", "Apply a named preset before the other flags")
	generateCmd.Flags().StringVar(&genAPI, "api", "", "API to call (default: "+protocol.DefaultAPI+")")
	generateCmd.Flags().StringVar(&genSave, "save", "", "Directory to save the query and result images to")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print only the JSON response")

	rootCmd.AddCommand(generateCmd)
}

// recordingGenerator keeps the last backend error so a failure can be
// explained with the client's troubleshooting hints
type recordingGenerator struct {
	next controller.Generator
	err  error
}

func (g *recordingGenerator) GenerateImage(ctx context.Context, req protocol.GenerationRequest, apiName string) (*protocol.GenerationResult, error) {
	result, err := g.next.GenerateImage(ctx, req, apiName)
	g.err = err
	return result, err
}

// generateError shows the message the controller displayed while keeping
// the backend error reachable through errors.As
type generateError struct {
	msg string
	err error
}

func (e *generateError) Error() string { return e.msg }
func (e *generateError) Unwrap() error { return e.err }

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	env, err := loadClientEnv()
	if err != nil {
		return err
	}
	client := env.client()
	gen := &recordingGenerator{next: client}

	store := state.NewStore()
	defer store.Close()
	store.UpdateSettings(env.registry.Preferences.Settings)

	color := !genJSON && term.IsTerminal(int(os.Stdout.Fd()))
	renderer := ui.NewRenderer(ui.WithColor(color))
	ctl := controller.New(store, gen, renderer,
		controller.WithPresets(env.registry.Preferences.Presets))
	defer ctl.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if genJSON {
		return generateJSON(ctx, store, client, ctl, renderer, gen, prompt)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Image Generation",
		Command: "imagegen generate",
		Params: []ui.Field{
			{Key: "Server", Value: env.serverURL},
			{Key: "Prompt", Value: logging.Truncate(prompt, 60)},
		},
		StepNames: []string{"Load gateway config", "Apply settings", "Generate images", "Save images"},
		Hint: func(err error) string {
			return apiclient.GetTroubleshootingHint(err) + "\n  • Guide: " + urls.TroubleshootingGuide
		},
	})

	err = runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Field, error) {
		onStep(1, ui.StepRunning, "")
		if store.LoadConfig(ctx, client) {
			onStep(1, ui.StepComplete, fmt.Sprintf("%d API(s)", len(store.State().AvailableAPIs)))
		} else {
			onStep(1, ui.StepSkipped, "using defaults")
		}

		onStep(2, ui.StepRunning, "")
		in, err := applyGenerateFlags(ctl, store, prompt)
		if err != nil {
			onStep(2, ui.StepFailed, "")
			return nil, err
		}
		onStep(2, ui.StepComplete, fmt.Sprintf("%s / %s / %s", in.ModelType, in.IndexType, in.SearchNum))

		onStep(3, ui.StepRunning, "")
		if err := runGeneration(ctx, ctl, renderer, gen, in); err != nil {
			onStep(3, ui.StepFailed, "")
			return nil, err
		}
		st := store.State()
		onStep(3, ui.StepComplete, fmt.Sprintf("%d result(s)", len(st.ResultImages)))

		details := []ui.Field{
			{Key: "Model", Value: in.ModelType},
			{Key: "Index", Value: in.IndexType},
			{Key: "Results", Value: strconv.Itoa(len(st.ResultImages))},
		}
		if msg, level := renderer.Message(); level == ui.MessageWarning {
			details = append(details, ui.Field{Key: "Warning", Value: msg})
		}

		if genSave == "" {
			onStep(4, ui.StepSkipped, "no --save")
			return details, nil
		}
		onStep(4, ui.StepRunning, "")
		paths, err := renderer.SaveImages(genSave)
		if err != nil {
			onStep(4, ui.StepFailed, "")
			return nil, fmt.Errorf("failed to save images: %w", err)
		}
		onStep(4, ui.StepComplete, fmt.Sprintf("%d file(s)", len(paths)))
		return append(details, ui.Field{Key: "Saved to", Value: genSave}), nil
	})
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.Newline()
	printer.PrintPage(renderer)
	return nil
}

func generateJSON(ctx context.Context, store *state.Store, client *apiclient.Client, ctl *controller.Controller, renderer *ui.Renderer, gen *recordingGenerator, prompt string) error {
	store.LoadConfig(ctx, client)
	in, err := applyGenerateFlags(ctl, store, prompt)
	if err != nil {
		return err
	}
	if err := runGeneration(ctx, ctl, renderer, gen, in); err != nil {
		return err
	}
	if genSave != "" {
		if _, err := renderer.SaveImages(genSave); err != nil {
			return fmt.Errorf("failed to save images: %w", err)
		}
	}
	fmt.Println(renderer.JSON())
	return nil
}

// applyGenerateFlags applies --preset and --api to the store and builds
// the form. Flags given explicitly win over the preset.
func applyGenerateFlags(ctl *controller.Controller, store *state.Store, prompt string) (controller.FormInput, error) {
	if genPreset != "" {
		if err := ctl.ApplyPreset(genPreset); err != nil {
			return controller.FormInput{}, fmt.Errorf("%w (available: %s)", err, strings.Join(ctl.Presets(), ", "))
		}
	}
	if genAPI != "" {
		if err := ctl.ChangeAPI(genAPI); err != nil {
			return controller.FormInput{}, err
		}
	}

	settings := store.State().Settings
	in := controller.FormInput{
		Prompt:    prompt,
		ModelType: settings.ModelType,
		IndexType: settings.IndexType,
		SearchNum: strconv.Itoa(settings.SearchNum),
	}
	if genModel != "" {
		in.ModelType = genModel
	}
	if genIndex != "" {
		in.IndexType = genIndex
	}
	if genCount != "" {
		in.SearchNum = genCount
	}
	return in, nil
}

func runGeneration(ctx context.Context, ctl *controller.Controller, renderer *ui.Renderer, gen *recordingGenerator, in controller.FormInput) error {
	switch ctl.Generate(ctx, in) {
	case controller.OutcomeSuccess:
		return nil
	case controller.OutcomeRejected:
		msg, _ := renderer.Message()
		return errors.New(msg)
	default:
		msg, _ := renderer.Message()
		return &generateError{msg: msg, err: gen.err}
	}
}
