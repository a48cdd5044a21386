// Package tool defines the processing tool contract and the registry that
// maps tool names to factories.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/retileup/retileup/internal/geometry"
)

// Tool is the contract every processing tool implements. Tools must be
// stateless: the registry hands out a fresh instance per invocation and
// concurrent invocations never share one.
type Tool interface {
	// Name returns the tool's unique identifier
	Name() string

	// Description returns a one-line summary for help text
	Description() string

	// ValidateConfig checks the configuration against the input image
	// extent and returns every problem found. Processing never starts
	// while this returns a non-empty slice.
	ValidateConfig(config map[string]interface{}, extent geometry.ImageExtent) []error

	// Process runs the tool against one input file
	Process(ctx context.Context, input string, config map[string]interface{}) (Result, error)
}

// SetupTool is an optional lifecycle hook run before Process.
type SetupTool interface {
	Setup() error
}

// CleanupTool is an optional lifecycle hook run after Process.
type CleanupTool interface {
	Cleanup()
}

// Result contains the outputs of one tool execution
type Result struct {
	// Outputs lists the files written, in production order; the first
	// entry is the primary output chained into the next workflow step
	Outputs []string

	// Metadata carries tool-specific details about the execution
	Metadata map[string]interface{}
}

// StepStatus tracks a step through the per-file state machine
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
	StatusCancelled StepStatus = "cancelled"
)

// StepResult is the normalized record of one tool invocation against one
// input file.
type StepResult struct {
	Step     string                 `yaml:"step"`
	Tool     string                 `yaml:"tool"`
	Input    string                 `yaml:"input"`
	Status   StepStatus             `yaml:"status"`
	Success  bool                   `yaml:"success"`
	Outputs  []string               `yaml:"outputs,omitempty"`
	Error    string                 `yaml:"error,omitempty"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty"`
	Elapsed  time.Duration          `yaml:"elapsed"`
}

// Factory constructs a tool instance
type Factory func() Tool

// NotFoundError reports a lookup for an unregistered tool name
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// Registry stores the available tool factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a tool factory to the registry
func (r *Registry) Register(factory Factory) error {
	if factory == nil {
		return fmt.Errorf("cannot register nil factory")
	}

	name := factory().Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("tool %s is already registered", name)
	}

	r.factories[name] = factory
	return nil
}

// Get constructs a fresh tool instance by name
func (r *Registry) Get(name string) (Tool, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, &NotFoundError{Name: name}
	}
	return factory(), nil
}

// Has reports whether a tool name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}

// List returns one instance of every registered tool
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.factories))
	for _, factory := range r.factories {
		tools = append(tools, factory())
	}
	return tools
}

// ParseParams converts a generic configuration map to a typed parameter
// struct for each tool via a json round-trip.
func ParseParams(params map[string]interface{}, target interface{}) error {
	if params == nil {
		return fmt.Errorf("params cannot be nil")
	}
	if target == nil {
		return fmt.Errorf("target cannot be nil")
	}

	if reflect.ValueOf(target).Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer to a struct")
	}
	if reflect.ValueOf(target).Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a struct")
	}

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("error marshaling params: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("error unmarshaling params: %w", err)
	}

	return nil
}
