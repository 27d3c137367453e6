package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/caffeineduck/tsbridge/command"
)

type route func(ctx context.Context, r *Responder, cmd command.Command) error

// Router maps each command variant type to its handler.
type Router struct {
	mu     sync.RWMutex
	routes map[reflect.Type]route
}

func NewRouter() *Router {
	return &Router{routes: make(map[reflect.Type]route)}
}

// Handle registers fn for commands of type C, replacing any previous route.
func Handle[C any](rt *Router, fn func(ctx context.Context, r *Responder, cmd C) error) {
	t := reflect.TypeFor[C]()
	rt.mu.Lock()
	rt.routes[t] = func(ctx context.Context, r *Responder, cmd command.Command) error {
		c, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("route %s got %T", t, cmd)
		}
		return fn(ctx, r, c)
	}
	rt.mu.Unlock()
}

// Serve is a Handler that forwards cmd to the route for its type.
func (rt *Router) Serve(ctx context.Context, r *Responder, cmd command.Command) error {
	rt.mu.RLock()
	fn, ok := rt.routes[reflect.TypeOf(cmd)]
	rt.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnhandledCommand, cmd)
	}
	return fn(ctx, r, cmd)
}

// Missing returns the tags in reg that have no route, sorted.
func (rt *Router) Missing(reg *command.Registry) []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var missing []string
	for tag, t := range reg.Variants() {
		if _, ok := rt.routes[t]; !ok {
			missing = append(missing, tag)
		}
	}
	sort.Strings(missing)
	return missing
}

// List returns the routed type names, sorted.
func (rt *Router) List() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	names := make([]string, 0, len(rt.routes))
	for t := range rt.routes {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}
