package bfield

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Registry is an immutable catalog of field types looked up by name.
type Registry struct {
	byName map[string]*Type
	types  []*Type
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of built-in field types.
func Default() *Registry {
	defaultOnce.Do(func() {
		registry, err := NewRegistry()
		if err != nil {
			panic(errors.Wrap(err, "building the built-in field types"))
		}
		defaultRegistry = registry
	})
	return defaultRegistry
}

// NewRegistry builds the built-in field types plus extra. Every
// contradiction in any spec is reported in one ConfigError.
func NewRegistry(extra ...Spec) (*Registry, error) {
	specs := append(builtinSpecs(), extra...)
	r := &Registry{
		byName: make(map[string]*Type, len(specs)*2),
		types:  make([]*Type, 0, len(specs)*2),
	}

	var messages []string
	register := func(name string, t *Type) {
		if _, ok := r.byName[name]; ok {
			messages = append(messages, fmt.Sprintf("%q: registered more than once", name))
			return
		}
		r.byName[name] = t
	}
	for _, spec := range specs {
		if problems := spec.validate(); len(problems) > 0 {
			messages = append(messages, problems...)
			continue
		}
		little, big := spec.incarnations()
		register(spec.Name, little)
		r.types = append(r.types, little)
		if spec.EndianAware {
			register("L"+spec.Name, little)
			register("B"+spec.Name, big)
			r.types = append(r.types, big)
		}
	}
	if len(messages) > 0 {
		return nil, &ConfigError{Messages: messages}
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// MustLookup is for names known at compile time.
func (r *Registry) MustLookup(name string) *Type {
	t, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("unknown field type %q", name))
	}
	return t
}

// Names returns every registered name, aliases included, sorted.
func (r *Registry) Names() []string {
	names := lo.Keys(r.byName)
	sort.Strings(names)
	return names
}

// Types returns every incarnation in registration order.
func (r *Registry) Types() []*Type {
	return lo.Map(r.types, func(t *Type, _ int) *Type { return t })
}
