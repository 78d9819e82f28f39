// Package migrate runs registered schema migrators in a fixed order, both at
// server startup and from the migrate subcommand. Each datastore plugin
// registers its own migrator and decides internally whether it applies to
// the configured backend.
package migrate

import (
	"context"
	"fmt"
	"slices"
)

// Migrator applies the schema changes for one plugin.
type Migrator interface {
	Name() string
	Migrate(ctx context.Context) error
}

// Plugin pairs a migrator with its execution order. Lower Order runs first.
type Plugin struct {
	Order    int
	Migrator Migrator
}

var plugins []Plugin

// Register adds a migration plugin. Called from init() in datastore packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// RunAll executes every registered migrator, ordered by Order. The first
// failure aborts the run; later migrators are not attempted.
func RunAll(ctx context.Context) error {
	ordered := slices.Clone(plugins)
	slices.SortStableFunc(ordered, func(a, b Plugin) int { return a.Order - b.Order })

	for _, p := range ordered {
		if err := p.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migration %s failed: %w", p.Migrator.Name(), err)
		}
	}
	return nil
}
