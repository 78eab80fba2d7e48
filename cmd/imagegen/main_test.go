package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muurk/imagegen/internal/apiclient"
	"github.com/muurk/imagegen/internal/config"
	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/protocol"
	"github.com/muurk/imagegen/internal/state"
	"github.com/muurk/imagegen/internal/ui"
)

// useConfig points the global registry at a fresh file holding reg
func useConfig(t *testing.T, reg *config.Registry) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	config.SetConfigPath(path)
	if _, err := config.ReloadRegistry(); err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	t.Cleanup(func() {
		config.SetConfigPath("")
		serverFlag = ""
		timeoutFlag = 0
	})
}

func TestLoadClientEnvServerPrecedence(t *testing.T) {
	reg := config.NewRegistry()
	if err := reg.SetServer("lab", "http://lab:8000", ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		flag   string
		envVar string
		want   string
	}{
		{"default server", "", "", "http://localhost:8000"},
		{"env names a server", "", "lab", "http://lab:8000"},
		{"env is a URL", "", "http://env:9000/", "http://env:9000"},
		{"flag wins over env", "local", "lab", "http://localhost:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, reg)
			t.Setenv("IMAGEGEN_SERVER", tt.envVar)
			serverFlag = tt.flag

			env, err := loadClientEnv()
			if err != nil {
				t.Fatalf("loadClientEnv() error = %v", err)
			}
			if env.serverURL != tt.want {
				t.Errorf("serverURL = %v, want %v", env.serverURL, tt.want)
			}
		})
	}
}

func TestLoadClientEnvUnknownServer(t *testing.T) {
	useConfig(t, config.NewRegistry())
	serverFlag = "nowhere"

	if _, err := loadClientEnv(); err == nil {
		t.Error("loadClientEnv() should fail for an unknown server name")
	}
}

func TestLoadClientEnvTimeout(t *testing.T) {
	useConfig(t, config.NewRegistry())
	t.Setenv("IMAGEGEN_TIMEOUT", "30s")

	env, err := loadClientEnv()
	if err != nil {
		t.Fatalf("loadClientEnv() error = %v", err)
	}
	if env.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want %v", env.timeout, 30*time.Second)
	}

	timeoutFlag = 5 * time.Second
	config.ReloadRegistry()
	env, err = loadClientEnv()
	if err != nil {
		t.Fatalf("loadClientEnv() error = %v", err)
	}
	if env.timeout != 5*time.Second {
		t.Errorf("timeout with --timeout = %v, want %v", env.timeout, 5*time.Second)
	}
}

func TestEditRegistryIgnoresEnv(t *testing.T) {
	useConfig(t, config.NewRegistry())
	t.Setenv("IMAGEGEN_OUTPUT_DIR", "/tmp/from-env")

	env, err := loadClientEnv()
	if err != nil {
		t.Fatalf("loadClientEnv() error = %v", err)
	}
	if got := env.outputDir(); got != "/tmp/from-env" {
		t.Errorf("outputDir() = %v, want %v", got, "/tmp/from-env")
	}

	reg, err := editRegistry()
	if err != nil {
		t.Fatalf("editRegistry() error = %v", err)
	}
	if reg.Preferences.OutputDir != "" {
		t.Errorf("editRegistry() OutputDir = %q, want empty", reg.Preferences.OutputDir)
	}
}

type stubGenerator struct {
	result *protocol.GenerationResult
	err    error
}

func (g *stubGenerator) GenerateImage(ctx context.Context, req protocol.GenerationRequest, apiName string) (*protocol.GenerationResult, error) {
	return g.result, g.err
}

func newTestController(t *testing.T, gen controller.Generator) (*controller.Controller, *state.Store, *ui.Renderer) {
	t.Helper()
	store := state.NewStore()
	renderer := ui.NewRenderer()
	ctl := controller.New(store, gen, renderer, controller.WithPresets(config.DefaultPresets()))
	t.Cleanup(func() {
		ctl.Close()
		store.Close()
		genPreset, genModel, genIndex, genCount, genAPI = "", "", "", "", ""
	})
	return ctl, store, renderer
}

func TestApplyGenerateFlags(t *testing.T) {
	ctl, store, _ := newTestController(t, &stubGenerator{})

	genPreset = "fast"
	genCount = "7"

	in, err := applyGenerateFlags(ctl, store, "a red bicycle")
	if err != nil {
		t.Fatalf("applyGenerateFlags() error = %v", err)
	}
	if in.ModelType != "b32" {
		t.Errorf("ModelType = %v, want %v", in.ModelType, "b32")
	}
	if in.IndexType != "cos" {
		t.Errorf("IndexType = %v, want %v", in.IndexType, "cos")
	}
	if in.SearchNum != "7" {
		t.Errorf("SearchNum = %v, want %v", in.SearchNum, "7")
	}
	if got := store.State().CurrentPreset; got != "fast" {
		t.Errorf("CurrentPreset = %v, want %v", got, "fast")
	}
}

func TestApplyGenerateFlagsUnknownPreset(t *testing.T) {
	ctl, store, _ := newTestController(t, &stubGenerator{})
	genPreset = "turbo"

	_, err := applyGenerateFlags(ctl, store, "prompt")
	if err == nil {
		t.Fatal("applyGenerateFlags() should fail for an unknown preset")
	}
	if !strings.Contains(err.Error(), "balanced") {
		t.Errorf("error = %v, should list the available presets", err)
	}
}

func TestRunGenerationRejected(t *testing.T) {
	ctl, _, renderer := newTestController(t, &stubGenerator{})
	gen := &recordingGenerator{next: &stubGenerator{}}

	err := runGeneration(context.Background(), ctl, renderer, gen, controller.FormInput{Prompt: "  ", SearchNum: "4"})
	if err == nil {
		t.Fatal("runGeneration() should fail for a blank prompt")
	}
	if err.Error() != controller.MsgPromptRequired {
		t.Errorf("error = %v, want %v", err, controller.MsgPromptRequired)
	}
}

func TestRunGenerationKeepsBackendError(t *testing.T) {
	backendErr := &apiclient.APIError{
		Type:    apiclient.ErrTypeTimeout,
		Message: "요청 시간이 초과되었습니다.",
	}
	gen := &recordingGenerator{next: &stubGenerator{err: backendErr}}
	ctl, _, renderer := newTestController(t, gen)

	err := runGeneration(context.Background(), ctl, renderer, gen, controller.FormInput{Prompt: "cat", SearchNum: "4"})
	if err == nil {
		t.Fatal("runGeneration() should fail when the backend fails")
	}
	if err.Error() != backendErr.Message {
		t.Errorf("error = %v, want %v", err, backendErr.Message)
	}
	if !apiclient.IsTimeout(err) {
		t.Error("IsTimeout() = false, want true through the wrapped backend error")
	}
}
