// Package generator defines the steps of a schema compilation and the queue
// that orders them.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/ormschema/registry"
)

// Generator is one step of a schema compilation. It receives the registry
// built by the previous steps and returns the registry for the next one.
type Generator interface {
	Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, r *registry.Registry) (*registry.Registry, error)

func (f Func) Run(ctx context.Context, r *registry.Registry) (*registry.Registry, error) {
	return f(ctx, r)
}

// Namer is implemented by generators that report their own name.
type Namer interface {
	Name() string
}

// Name returns a printable name for g.
func Name(g Generator) string {
	if n, ok := g.(Namer); ok {
		return n.Name()
	}
	name := fmt.Sprintf("%T", g)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
