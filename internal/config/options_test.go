package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkflowFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: test\n"), 0644))
	return path
}

func TestNewRunOptions(t *testing.T) {
	wf := writeWorkflowFile(t)

	opts, err := NewRunOptions(wf, []string{"a.png"}, "", 4, true, "")
	require.NoError(t, err)

	assert.Equal(t, wf, opts.WorkflowPath)
	assert.Equal(t, 4, opts.MaxParallel)
	assert.True(t, opts.ContinueOnError)
}

func TestNewRunOptionsErrors(t *testing.T) {
	wf := writeWorkflowFile(t)

	tests := []struct {
		name string
		call func() (*RunOptions, error)
	}{
		{"missing workflow path", func() (*RunOptions, error) {
			return NewRunOptions("", []string{"a.png"}, "", 0, false, "")
		}},
		{"nonexistent workflow", func() (*RunOptions, error) {
			return NewRunOptions("/nonexistent/wf.yaml", []string{"a.png"}, "", 0, false, "")
		}},
		{"no inputs", func() (*RunOptions, error) {
			return NewRunOptions(wf, nil, "", 0, false, "")
		}},
		{"negative parallelism", func() (*RunOptions, error) {
			return NewRunOptions(wf, []string{"a.png"}, "", -1, false, "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.call()
			assert.Nil(t, opts)
			assert.Error(t, err)
		})
	}
}

func TestEnvDefaults(t *testing.T) {
	wf := writeWorkflowFile(t)
	outDir := filepath.Join(t.TempDir(), "out")

	t.Setenv("RETILEUP_OUTPUT", outDir)
	t.Setenv("RETILEUP_MAX_PARALLEL", "8")

	opts, err := NewRunOptions(wf, []string{"a.png"}, "", 0, false, "")
	require.NoError(t, err)
	assert.Equal(t, outDir, opts.OutputPath)
	assert.Equal(t, 8, opts.MaxParallel)

	// Explicit flags win over the environment.
	opts, err = NewRunOptions(wf, []string{"a.png"}, filepath.Join(t.TempDir(), "cli"), 2, false, "")
	require.NoError(t, err)
	assert.NotEqual(t, outDir, opts.OutputPath)
	assert.Equal(t, 2, opts.MaxParallel)
}

func TestEnvDefaultsIgnoreInvalidParallel(t *testing.T) {
	wf := writeWorkflowFile(t)
	t.Setenv("RETILEUP_MAX_PARALLEL", "not-a-number")

	opts, err := NewRunOptions(wf, []string{"a.png"}, "", 0, false, "")
	require.NoError(t, err)
	assert.Equal(t, 0, opts.MaxParallel)
}
