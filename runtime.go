package cunit

import (
	"github.com/tliron/commonlog"
	"slices"
)

var logger = commonlog.GetLogger("cunit.loader")

// Runtime is the execution context of one VM instance. It owns the LoadedSet.
type Runtime struct {
	Config *Config
	loaded *LoadedSet
	loader *Loader
}

// NewRuntime creates a Runtime with an empty LoadedSet. A nil config means DefaultConfig.
//
// The materializer follows Config.Format: envelopes go to reg, objects to objects.
// Without objects, object artifacts fail with ErrNoObjects.
func NewRuntime(cfg *Config, reg *Registry, objects Materializer) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	if objects == nil {
		objects = noObjects{}
	}
	var m Materializer
	switch cfg.Format {
	case FormatEnvelope:
		m = reg
	case FormatObject:
		m = objects
	default:
		m = AutoMaterializer{Envelope: reg, Object: objects}
	}
	return NewRuntimeWith(cfg, m)
}

type noObjects struct{}

func (noObjects) Materialize([]byte) (*Handle, error) {
	return nil, ErrNoObjects
}

// NewRuntimeWith uses the given materializer.
func NewRuntimeWith(cfg *Config, m Materializer) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rt := &Runtime{Config: cfg, loaded: NewLoadedSet()}
	rt.loader = NewLoader(Resolver{Bootstrap: cfg.Bootstrap, SearchPath: cfg.SearchPath}, m, cfg.Debug)
	return rt
}

// Loaded set of this runtime.
func (r *Runtime) Loaded() *LoadedSet {
	return r.loaded
}

// Loader of this runtime.
func (r *Runtime) Loader() *Loader {
	return r.loader
}

// Context is a root context for loads started by the host.
func (r *Runtime) Context() *Context {
	return &Context{rt: r}
}

// Load the unit id from a root context.
func (r *Runtime) Load(id string) error {
	return r.loader.Load(r.Context(), id)
}

// Bootstrap loads the configured bootstrap unit.
func (r *Runtime) Bootstrap() error {
	return r.Load(r.Config.Bootstrap)
}

// Context is handed to unit hooks. It carries the chain of identifiers activating on this call path.
type Context struct {
	rt    *Runtime
	chain []string
}

// Loaded set of the runtime.
func (c *Context) Loaded() *LoadedSet {
	return c.rt.loaded
}

// Load a dependency from inside a unit hook.
func (c *Context) Load(id string) error {
	return c.rt.loader.Load(c, id)
}

// Chain of identifiers being activated, outermost first.
func (c *Context) Chain() []string {
	return slices.Clone(c.chain)
}

// Transfer raises a control transfer, return it from RunLoadIfAvailable.
func (c *Context) Transfer(payload any) error {
	return &ControlTransfer{Payload: payload}
}

// Die raises a fatal load failure of the unit being activated.
func (c *Context) Die(description string) error {
	id := ""
	if n := len(c.chain); n > 0 {
		id = c.chain[n-1]
	}
	return &FatalError{Identifier: id, Description: description}
}

func (c *Context) activating(id string) bool {
	return slices.Contains(c.chain, id)
}

func (c *Context) enter(id string) *Context {
	chain := make([]string, len(c.chain), len(c.chain)+1)
	copy(chain, c.chain)
	return &Context{rt: c.rt, chain: append(chain, id)}
}
