package generator

import (
	"fmt"
	"sort"
)

// Resolver turns a reference into a generator.
type Resolver interface {
	Resolve(ref Ref) (Generator, error)
}

// Constructor builds a generator on demand.
type Constructor func() (Generator, error)

// Catalog is a Resolver backed by named constructors. A catalog is filled
// at startup and only read afterwards.
type Catalog struct {
	constructors map[Ref]Constructor
}

func NewCatalog() *Catalog {
	return &Catalog{constructors: make(map[Ref]Constructor)}
}

// Register adds or replaces a constructor.
func (c *Catalog) Register(ref Ref, fn Constructor) *Catalog {
	c.constructors[ref] = fn
	return c
}

// Instance registers a generator that is shared by every resolution.
func (c *Catalog) Instance(ref Ref, g Generator) *Catalog {
	return c.Register(ref, func() (Generator, error) { return g, nil })
}

func (c *Catalog) Resolve(ref Ref) (Generator, error) {
	fn, ok := c.constructors[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, ref)
	}
	g, err := fn()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("constructor of %q returned no generator", ref)
	}
	return g, nil
}

func (c *Catalog) Has(ref Ref) bool {
	_, ok := c.constructors[ref]
	return ok
}

// Names returns the registered references, sorted.
func (c *Catalog) Names() []Ref {
	out := make([]Ref, 0, len(c.constructors))
	for ref := range c.constructors {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
