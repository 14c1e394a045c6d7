package cmd

import (
	"sync"

	"github.com/spf13/cobra"

	"cmms.GO/core/registry"
)

var mu sync.Mutex

func registered() []*cobra.Command {
	if v, ok := registry.GlobalRegistry.GetGlobal(registry.KeyRegistryCmd); ok && v != nil {
		return v.([]*cobra.Command)
	}
	return nil
}

// Register adds a command from an extension package. Call from init().
// Panics once Apply has run or when the name is already taken.
func Register(c *cobra.Command) {
	mu.Lock()
	defer mu.Unlock()
	if registry.GlobalRegistry.IsLocked(registry.KeyRegistryCmd) {
		panic("cmd/registry: locked (register only during init before Apply)")
	}
	list := registered()
	for _, existing := range list {
		if existing.Name() == c.Name() {
			panic("cmd/registry: duplicate command " + c.Name())
		}
	}
	registry.GlobalRegistry.SetGlobal(registry.KeyRegistryCmd, append(list, c))
}

// Apply adds registered commands to root and locks the registry. Later
// calls are no-ops.
func Apply() {
	mu.Lock()
	defer mu.Unlock()
	if registry.GlobalRegistry.IsLocked(registry.KeyRegistryCmd) {
		return
	}
	for _, c := range registered() {
		rootCmd.AddCommand(c)
	}
	registry.GlobalRegistry.Lock(registry.KeyRegistryCmd)
}
