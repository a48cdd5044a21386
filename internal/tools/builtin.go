// Package tools wires the built-in tool set into a registry.
package tools

import (
	"fmt"

	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/tools/rename"
	"github.com/retileup/retileup/internal/tools/resize"
	"github.com/retileup/retileup/internal/tools/tile"
)

// NewRegistry returns a registry populated with the built-in tools. The set
// is fixed at compile time; external tools register through tool.Registry
// directly.
func NewRegistry() (*tool.Registry, error) {
	registry := tool.NewRegistry()

	factories := []tool.Factory{
		tile.New,
		resize.New,
		rename.New,
	}
	for _, factory := range factories {
		if err := registry.Register(factory); err != nil {
			return nil, fmt.Errorf("failed to register built-in tool: %w", err)
		}
	}

	return registry, nil
}
