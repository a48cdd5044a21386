package orchestrator

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retileup/retileup/internal/geometry"
	"github.com/retileup/retileup/internal/tool"
)

// writeTestPNG creates a small image the orchestrator can measure.
func writeTestPNG(t *testing.T, dir string, width, height int) string {
	t.Helper()

	path := filepath.Join(dir, "input.png")
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, png.Encode(f, img))
	return path
}

type scriptedTool struct {
	name          string
	validateErrs  []error
	processErr    error
	panicMessage  string
	outputs       []string
	processCalled *bool
	setupErr      error
	cleanedUp     *bool
}

func (s *scriptedTool) Name() string        { return s.name }
func (s *scriptedTool) Description() string { return "scripted tool for testing" }

func (s *scriptedTool) ValidateConfig(config map[string]interface{}, extent geometry.ImageExtent) []error {
	return s.validateErrs
}

func (s *scriptedTool) Process(ctx context.Context, input string, config map[string]interface{}) (tool.Result, error) {
	if s.processCalled != nil {
		*s.processCalled = true
	}
	if s.panicMessage != "" {
		panic(s.panicMessage)
	}
	return tool.Result{Outputs: s.outputs}, s.processErr
}

func (s *scriptedTool) Setup() error {
	return s.setupErr
}

func (s *scriptedTool) Cleanup() {
	if s.cleanedUp != nil {
		*s.cleanedUp = true
	}
}

func registryWith(t *testing.T, scripted *scriptedTool) *tool.Registry {
	t.Helper()
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(func() tool.Tool { return scripted }))
	return registry
}

func TestRunSuccess(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), 10, 10)
	cleaned := false
	scripted := &scriptedTool{name: "ok", outputs: []string{"out.png"}, cleanedUp: &cleaned}

	orch := New(registryWith(t, scripted))
	result := orch.Run(context.Background(), "step1", "ok", input, map[string]interface{}{})

	assert.True(t, result.Success)
	assert.Equal(t, tool.StatusCompleted, result.Status)
	assert.Equal(t, []string{"out.png"}, result.Outputs)
	assert.Equal(t, "step1", result.Step)
	assert.Empty(t, result.Error)
	assert.True(t, cleaned)
}

func TestRunValidationBlocksExecution(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), 10, 10)
	called := false
	scripted := &scriptedTool{
		name:          "strict",
		validateErrs:  []error{fmt.Errorf("bad width"), fmt.Errorf("bad height")},
		processCalled: &called,
	}

	orch := New(registryWith(t, scripted))
	result := orch.Run(context.Background(), "step1", "strict", input, map[string]interface{}{})

	assert.False(t, result.Success)
	assert.Equal(t, tool.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "bad width")
	assert.Contains(t, result.Error, "bad height")
	assert.False(t, called, "Process must not run when validation fails")
}

func TestRunProcessError(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), 10, 10)
	scripted := &scriptedTool{name: "broken", processErr: fmt.Errorf("disk full")}

	orch := New(registryWith(t, scripted))
	result := orch.Run(context.Background(), "step1", "broken", input, map[string]interface{}{})

	assert.False(t, result.Success)
	assert.Equal(t, tool.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "disk full")
}

func TestRunRecoversPanic(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), 10, 10)
	scripted := &scriptedTool{name: "panicky", panicMessage: "index out of range"}

	orch := New(registryWith(t, scripted))

	var result tool.StepResult
	assert.NotPanics(t, func() {
		result = orch.Run(context.Background(), "step1", "panicky", input, map[string]interface{}{})
	})

	assert.False(t, result.Success)
	assert.Equal(t, tool.StatusFailed, result.Status)
	assert.Contains(t, result.Error, "index out of range")
}

func TestRunUnknownTool(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), 10, 10)
	orch := New(tool.NewRegistry())

	result := orch.Run(context.Background(), "step1", "missing", input, map[string]interface{}{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestRunUnreadableInput(t *testing.T) {
	scripted := &scriptedTool{name: "ok"}
	orch := New(registryWith(t, scripted))

	result := orch.Run(context.Background(), "step1", "ok", "/nonexistent/image.png", map[string]interface{}{})

	assert.False(t, result.Success)
	assert.Equal(t, tool.StatusFailed, result.Status)
}

func TestRunSetupFailure(t *testing.T) {
	input := writeTestPNG(t, t.TempDir(), 10, 10)
	called := false
	scripted := &scriptedTool{
		name:          "needy",
		setupErr:      fmt.Errorf("missing dependency"),
		processCalled: &called,
	}

	orch := New(registryWith(t, scripted))
	result := orch.Run(context.Background(), "step1", "needy", input, map[string]interface{}{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "missing dependency")
	assert.False(t, called)
}

func TestProcessingErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("root cause")
	err := &ProcessingError{Tool: "tile", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "tile")
}
