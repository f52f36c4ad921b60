package cunit

import (
	"fmt"
	"github.com/ZenLiuCN/fn"
	"slices"
	"sync"
)

type (
	// Materializer turns raw artifact bytes into a constructible Handle.
	//
	// Every call must yield an independent Handle, whatever name the artifact declares.
	Materializer interface {
		Materialize(raw []byte) (*Handle, error)
	}
	// Factory builds a unit of one kind from an envelope payload.
	Factory func(payload []byte) (CompilationUnit, error)
	// Registry materializes envelope artifacts with precompiled factories keyed by kind.
	Registry struct {
		kinds map[string]Factory
		sync.RWMutex
	}
)

// NewRegistry create an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Factory)}
}

// Register a factory for kind.
func (r *Registry) Register(kind string, f Factory) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.kinds[kind]; ok {
		return fmt.Errorf("%w: %s", ErrKindExists, kind)
	}
	r.kinds[kind] = f
	return nil
}

// MustRegister panics on duplicate kinds.
func (r *Registry) MustRegister(kind string, f Factory) *Registry {
	fn.Panic(r.Register(kind, f))
	return r
}

// Kinds registered, sorted.
func (r *Registry) Kinds() []string {
	r.RLock()
	defer r.RUnlock()
	k := fn.MapKeys(r.kinds)
	slices.Sort(k)
	return k
}

// Materialize decodes the envelope and binds its payload into a fresh Handle.
// The payload is copied, the raw buffer is not retained.
func (r *Registry) Materialize(raw []byte) (*Handle, error) {
	e, err := UnmarshalEnvelope(raw)
	if err != nil {
		return nil, err
	}
	r.RLock()
	f, ok := r.kinds[e.Kind]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	payload := slices.Clone(e.Payload)
	return NewHandle(Digest(raw), "envelope:"+e.Kind, func() (CompilationUnit, error) {
		return f(payload)
	}), nil
}

// AutoMaterializer dispatches envelopes to Envelope and everything else to Object.
type AutoMaterializer struct {
	Envelope Materializer
	Object   Materializer
}

func (a AutoMaterializer) Materialize(raw []byte) (*Handle, error) {
	if a.Envelope != nil && IsEnvelope(raw) {
		return a.Envelope.Materialize(raw)
	}
	if a.Object == nil {
		return nil, ErrNotEnvelope
	}
	return a.Object.Materialize(raw)
}
