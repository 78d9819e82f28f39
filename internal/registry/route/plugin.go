// Package route collects HTTP route plugins registered from init() so the
// server can mount them in a deterministic order without importing each
// route package directly.
package route

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// RouterLoader mounts a plugin's routes on the gin engine.
type RouterLoader func(r *gin.Engine) error

// RouteType says which listener a plugin's routes belong on.
type RouteType int

const (
	// RouteTypeMain mounts on the public API listener.
	RouteTypeMain RouteType = iota
	// RouteTypeManagement mounts on the management listener (health, ready,
	// metrics). Without a dedicated management port these land on the main
	// listener instead.
	RouteTypeManagement
)

// Plugin is one registered route set. Lower Order mounts first.
type Plugin struct {
	Order  int
	Type   RouteType
	Loader RouterLoader
}

var plugins []Plugin

// Register adds a route plugin. Called from init() in route packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

func loadersOfType(t RouteType) []RouterLoader {
	ordered := slices.Clone(plugins)
	slices.SortStableFunc(ordered, func(a, b Plugin) int { return a.Order - b.Order })

	var loaders []RouterLoader
	for _, p := range ordered {
		if p.Type == t {
			loaders = append(loaders, p.Loader)
		}
	}
	return loaders
}

// MainRouteLoaders returns the public API loaders in mount order.
func MainRouteLoaders() []RouterLoader {
	return loadersOfType(RouteTypeMain)
}

// ManagementRouteLoaders returns the management loaders in mount order.
func ManagementRouteLoaders() []RouterLoader {
	return loadersOfType(RouteTypeManagement)
}
