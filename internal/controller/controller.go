package controller

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/state"
)

// View renders what the controller decides to show.
// *ui.Renderer implements it.
type View interface {
	ShowLoading()
	HideLoading()
	ClearResults()
	DisplayError(msg string)
	DisplayWarning(msg string)
	ClearError()
	DisplayQueryImage(b64 string)
	DisplayResultImages(items []protocol.VectorItem)
	DisplayJSON(result *protocol.GenerationResult)
}

// Generator runs one generation. *apiclient.Client implements it.
type Generator interface {
	GenerateImage(ctx context.Context, req protocol.GenerationRequest, apiName string) (*protocol.GenerationResult, error)
}

// Phase is where the controller is in a generation
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseRequesting
	PhaseSuccess
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseRequesting:
		return "requesting"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Outcome is what Generate did
type Outcome int

const (
	// OutcomeIgnored means another generation was already running
	OutcomeIgnored Outcome = iota
	// OutcomeRejected means the form failed local validation
	OutcomeRejected
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Option configures a Controller
type Option func(*Controller)

// WithPresets registers named settings for ApplyPreset
func WithPresets(presets map[string]protocol.Settings) Option {
	return func(c *Controller) {
		for name, s := range presets {
			c.presets[name] = s
		}
	}
}

// Controller runs generations: validate, request, then store the result.
// Rendering follows from the store subscription set up in New.
type Controller struct {
	store     *state.Store
	generator Generator
	view      View
	presets   map[string]protocol.Settings

	inProgress  atomic.Bool
	phase       atomic.Int32
	unsubscribe func()
}

// New wires a controller to its store, backend and view
func New(store *state.Store, generator Generator, view View, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		generator: generator,
		view:      view,
		presets:   map[string]protocol.Settings{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = store.Subscribe(c.render)
	return c
}

// render maps state transitions onto view calls.
func (c *Controller) render(next, prev state.AppState) {
	if next.IsLoading != prev.IsLoading {
		if next.IsLoading {
			c.view.ClearError()
			c.view.ClearResults()
			c.view.ShowLoading()
		} else {
			c.view.HideLoading()
		}
	}

	if next.LastResult == prev.LastResult {
		return
	}
	if next.LastResult == nil {
		c.view.ClearResults()
		return
	}
	c.displayResult(next.LastResult)
}

func (c *Controller) displayResult(result *protocol.GenerationResult) {
	if !result.Result {
		logging.Warn("Result flag is false, nothing to display")
		return
	}
	if result.QueryImage != "" {
		c.view.DisplayQueryImage(result.QueryImage)
	}
	if len(result.VectorResult) > 0 {
		c.view.DisplayResultImages(result.VectorResult)
	}
	c.view.DisplayJSON(result)

	if lim := result.ServerLimitation; lim != nil && lim.Message != "" {
		c.view.DisplayWarning(lim.Message)
	}
}

// Generate validates the form and runs one generation. A call made while
// another is running returns OutcomeIgnored and sends nothing.
func (c *Controller) Generate(ctx context.Context, in FormInput) Outcome {
	if !c.inProgress.CompareAndSwap(false, true) {
		logging.Debug("Generation already in progress, ignoring")
		return OutcomeIgnored
	}
	defer c.inProgress.Store(false)
	defer c.setPhase(PhaseIdle)

	c.setPhase(PhaseValidating)
	st := c.store.State()
	if in.ModelType == "" {
		in.ModelType = st.Settings.ModelType
	}
	if in.IndexType == "" {
		in.IndexType = st.Settings.IndexType
	}

	req, err := ValidateInput(in)
	if err != nil {
		logging.Debug("Form rejected", zap.Error(err))
		c.view.DisplayError(err.Error())
		return OutcomeRejected
	}

	c.setPhase(PhaseRequesting)
	c.store.SetLoading(true)
	defer c.store.SetLoading(false)
	c.store.ClearResults()
	c.store.UpdateSettings(protocol.Settings{
		ModelType: req.ModelType,
		IndexType: req.IndexType,
		SearchNum: req.SearchNum,
	})

	apiName := ""
	if st.CurrentAPI != protocol.DefaultAPI {
		apiName = st.CurrentAPI
	}

	result, err := c.generator.GenerateImage(ctx, req, apiName)
	if err != nil {
		c.setPhase(PhaseFailure)
		msg := ErrorMessage(err)
		logging.Error("Generation failed", zap.Error(err), zap.String("shown", msg))
		c.view.DisplayError(msg)
		return OutcomeFailure
	}

	c.setPhase(PhaseSuccess)
	c.store.SetResult(result)
	return OutcomeSuccess
}

// InProgress reports whether a generation is running
func (c *Controller) InProgress() bool {
	return c.inProgress.Load()
}

// Phase returns the current phase
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Controller) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

// ApplyPreset merges a named preset into the settings
func (c *Controller) ApplyPreset(name string) error {
	preset, ok := c.presets[name]
	if !ok {
		return fmt.Errorf("unknown preset: %s", name)
	}
	c.store.UpdateSettings(preset)
	c.store.SetState(func(st *state.AppState) {
		st.CurrentPreset = name
	})
	logging.Info("Preset applied", zap.String("preset", name))
	return nil
}

// Presets returns the registered preset names in order
func (c *Controller) Presets() []string {
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChangeAPI switches the API used by later generations
func (c *Controller) ChangeAPI(name string) error {
	return c.store.SetCurrentAPI(name)
}

// Close detaches the controller from the store
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}
