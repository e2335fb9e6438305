package generator

import (
	"errors"
	"slices"
)

// Group is a phase of the pipeline. Groups always run in the order of
// Groups, whatever order generators were added in.
type Group string

const (
	GroupIndex       Group = "index"
	GroupRender      Group = "render"
	GroupPostprocess Group = "postprocess"
)

var Groups = []Group{GroupIndex, GroupRender, GroupPostprocess}

func (g Group) Valid() bool {
	return slices.Contains(Groups, g)
}

// Ref names a generator that is resolved lazily through a Resolver.
type Ref string

// Entry is a queued generator, either an instance or a reference.
type Entry struct {
	Generator Generator
	Ref       Ref
}

func (e Entry) String() string {
	if e.Generator != nil {
		return Name(e.Generator)
	}
	return string(e.Ref)
}

// Queue is an ordered set of generators split into groups. Queue values
// are immutable: every mutation returns a new queue and leaves the
// receiver untouched, so a queue can be shared and specialized freely.
type Queue struct {
	resolver Resolver
	groups   map[Group][]Entry
}

// NewQueue returns an empty queue resolving references through resolver.
// resolver may be nil when only instances are queued.
func NewQueue(resolver Resolver) Queue {
	return Queue{resolver: resolver}
}

// Build returns a queue holding the given references per group. Groups are
// added in pipeline order; names inside a group keep their order.
func Build(resolver Resolver, groups map[string][]string) (Queue, error) {
	q := NewQueue(resolver)
	for name := range groups {
		if !Group(name).Valid() {
			return Queue{}, &InvalidGroupError{Group: Group(name)}
		}
	}
	for _, g := range Groups {
		for _, name := range groups[string(g)] {
			var err error
			if q, err = q.AddRef(g, Ref(name)); err != nil {
				return Queue{}, err
			}
		}
	}
	return q, nil
}

func (q Queue) clone() Queue {
	out := Queue{resolver: q.resolver, groups: make(map[Group][]Entry, len(q.groups))}
	for g, entries := range q.groups {
		out.groups[g] = slices.Clone(entries)
	}
	return out
}

func (q Queue) add(group Group, e Entry) (Queue, error) {
	if !group.Valid() {
		return q, &InvalidGroupError{Group: group}
	}
	out := q.clone()
	out.groups[group] = append(out.groups[group], e)
	return out, nil
}

// AddGenerator returns a copy of q with g appended to group.
func (q Queue) AddGenerator(group Group, g Generator) (Queue, error) {
	if g == nil {
		return q, errors.New("nil generator")
	}
	return q.add(group, Entry{Generator: g})
}

// AddRef returns a copy of q with a reference appended to group. The
// reference is resolved by Generators.
func (q Queue) AddRef(group Group, ref Ref) (Queue, error) {
	if ref == "" {
		return q, errors.New("empty generator reference")
	}
	return q.add(group, Entry{Ref: ref})
}

// Remove returns a copy of q without every generator assignable to T, in
// any group. T may be a concrete type or an interface. References are
// probed through the resolver; a reference that does not resolve is kept
// and fails later in Generators.
func Remove[T any](q Queue) Queue {
	out := q.clone()
	for g, entries := range out.groups {
		out.groups[g] = slices.DeleteFunc(entries, func(e Entry) bool {
			gen := e.Generator
			if gen == nil {
				if q.resolver == nil {
					return false
				}
				var err error
				if gen, err = q.resolver.Resolve(e.Ref); err != nil {
					return false
				}
			}
			_, ok := gen.(T)
			return ok
		})
	}
	return out
}

// RemoveRef returns a copy of q without the references named ref.
func (q Queue) RemoveRef(ref Ref) Queue {
	out := q.clone()
	for g, entries := range out.groups {
		out.groups[g] = slices.DeleteFunc(entries, func(e Entry) bool {
			return e.Generator == nil && e.Ref == ref
		})
	}
	return out
}

// WithoutGenerators returns an empty queue with the same resolver.
func (q Queue) WithoutGenerators() Queue {
	return NewQueue(q.resolver)
}

// Len returns the number of queued entries.
func (q Queue) Len() int {
	n := 0
	for _, entries := range q.groups {
		n += len(entries)
	}
	return n
}

// Entries returns the entries of one group in insertion order.
func (q Queue) Entries(group Group) []Entry {
	return slices.Clone(q.groups[group])
}

// Generators resolves every entry, groups in pipeline order.
func (q Queue) Generators() ([]Generator, error) {
	out := make([]Generator, 0, q.Len())
	for _, group := range Groups {
		for _, e := range q.groups[group] {
			if e.Generator != nil {
				out = append(out, e.Generator)
				continue
			}
			if q.resolver == nil {
				return nil, &ResolutionError{Ref: e.Ref, Err: errors.New("no resolver configured")}
			}
			g, err := q.resolver.Resolve(e.Ref)
			if err != nil {
				return nil, &ResolutionError{Ref: e.Ref, Err: err}
			}
			out = append(out, g)
		}
	}
	return out, nil
}
