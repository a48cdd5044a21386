package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/retileup/retileup/internal/tool"
)

func completedStep(name, output string) tool.StepResult {
	return tool.StepResult{
		Step:    name,
		Tool:    "tile",
		Status:  tool.StatusCompleted,
		Success: true,
		Outputs: []string{output},
		Elapsed: 10 * time.Millisecond,
	}
}

func TestAggregatorSummary(t *testing.T) {
	agg := NewAggregator("nightly")

	agg.Add("a.png", tool.StatusCompleted, []tool.StepResult{completedStep("tile", "out/a_0_0.png")})
	agg.Add("b.png", tool.StatusFailed, []tool.StepResult{
		{Step: "tile", Tool: "tile", Status: tool.StatusFailed, Error: "bad config"},
		{Step: "resize", Tool: "resize", Status: tool.StatusSkipped},
	})
	agg.Add("c.png", tool.StatusCancelled, nil)

	r := agg.Finalize()

	assert.Equal(t, "nightly", r.Workflow)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 3, r.Summary.TotalFiles)
	assert.Equal(t, 1, r.Summary.CompletedFiles)
	assert.Equal(t, 1, r.Summary.FailedFiles)
	assert.Equal(t, 1, r.Summary.CancelledFiles)
	assert.Equal(t, 3, r.Summary.TotalSteps)
	assert.Equal(t, 1, r.Summary.FailedSteps)

	assert.Equal(t, []string{"out/a_0_0.png"}, r.Outputs)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "b.png")
	assert.Contains(t, r.Errors[0], "tile")
	assert.Contains(t, r.Errors[0], "bad config")
}

func TestAggregatorDetectsCollisions(t *testing.T) {
	agg := NewAggregator("batch")

	agg.Add("a.png", tool.StatusCompleted, []tool.StepResult{completedStep("tile", "out/tile.png")})
	agg.Add("b.png", tool.StatusCompleted, []tool.StepResult{completedStep("tile", "out/tile.png")})

	r := agg.Finalize()

	// The first writer keeps the path; the second is marked failed after
	// the fact and the file's status is downgraded.
	assert.Equal(t, []string{"out/tile.png"}, r.Outputs)
	assert.Equal(t, tool.StatusCompleted, r.Files[0].Status)
	assert.Equal(t, tool.StatusFailed, r.Files[1].Status)
	assert.Equal(t, tool.StatusFailed, r.Files[1].Steps[0].Status)
	assert.False(t, r.Files[1].Steps[0].Success)

	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "output collision")
	assert.Contains(t, r.Errors[0], "a.png")
	assert.Contains(t, r.Errors[0], "b.png")

	assert.Equal(t, 1, r.Summary.CompletedFiles)
	assert.Equal(t, 1, r.Summary.FailedFiles)
}

func TestAggregatorRecordsPartialOutputsOfFailedSteps(t *testing.T) {
	agg := NewAggregator("batch")

	// A step that failed mid-way has already written its partial outputs;
	// they count as produced files and claim their paths.
	agg.Add("a.png", tool.StatusFailed, []tool.StepResult{
		{Step: "tile", Tool: "tile", Status: tool.StatusFailed,
			Outputs: []string{"out/a_0_0.png", "out/a_0_5.png"}, Error: "encode error"},
	})
	agg.Add("b.png", tool.StatusCompleted, []tool.StepResult{completedStep("tile", "out/a_0_0.png")})

	r := agg.Finalize()
	assert.Equal(t, []string{"out/a_0_0.png", "out/a_0_5.png"}, r.Outputs)

	// The later step colliding with a partial output is downgraded.
	assert.Equal(t, tool.StatusFailed, r.Files[1].Status)
	assert.Equal(t, tool.StatusFailed, r.Files[1].Steps[0].Status)

	var collisions int
	for _, msg := range r.Errors {
		if strings.Contains(msg, "output collision") {
			collisions++
		}
	}
	assert.Equal(t, 1, collisions)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	agg := NewAggregator("batch")
	agg.Add("a.png", tool.StatusCompleted, []tool.StepResult{completedStep("tile", "out/a.png")})

	first := agg.Finalize()
	second := agg.Finalize()

	assert.Same(t, first, second)
	assert.Equal(t, 1, first.Summary.TotalFiles)
}

func TestRunReportSave(t *testing.T) {
	agg := NewAggregator("batch")
	agg.Add("a.png", tool.StatusCompleted, []tool.StepResult{completedStep("tile", "out/a.png")})
	r := agg.Finalize()

	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	require.NoError(t, r.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded RunReport
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, 1, loaded.Summary.TotalFiles)
	assert.Len(t, loaded.Files, 1)
}
