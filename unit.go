package cunit

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

type (
	// CompilationUnit is one loaded module. Both hooks run once per activation, in order.
	CompilationUnit interface {
		InitializeCompilationUnit(tc *Context) error //bind per-unit runtime state
		RunLoadIfAvailable(tc *Context) error        //optional module body, may return a *ControlTransfer
	}
	// Constructor builds a fresh unit instance without arguments.
	Constructor func() (CompilationUnit, error)
	// Handle is a materialized, constructible unit.
	//
	// The ID is generated per materialization and never derived from the artifact,
	// two handles materialized from identical bytes are still distinct.
	Handle struct {
		ID     uuid.UUID
		Digest uint64 //xxh3 of the raw artifact
		Kind   string //materializer specific description, for diagnostics only
		ctor   Constructor
	}
)

// NewHandle creates a Handle with a fresh anonymous ID.
func NewHandle(digest uint64, kind string, ctor Constructor) *Handle {
	return &Handle{
		ID:     uuid.New(),
		Digest: digest,
		Kind:   kind,
		ctor:   ctor,
	}
}

// New constructs an instance. Panics inside the constructor are reported as errors,
// except a *ControlTransfer which is returned as is.
func (h *Handle) New() (u CompilationUnit, err error) {
	if h == nil || h.ctor == nil {
		return nil, ErrNilUnit
	}
	defer func() {
		switch r := recover().(type) {
		case nil:
		case *ControlTransfer:
			u, err = nil, r
		default:
			u, err = nil, fmt.Errorf("construct %s: %v", h, r)
		}
	}()
	if u, err = h.ctor(); err != nil {
		return nil, err
	}
	if u == nil {
		err = ErrNilUnit
	}
	return
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s[%s#%016x]", h.Kind, h.ID, h.Digest)
}

// Digest of a raw artifact, as carried by Handle.Digest.
func Digest(raw []byte) uint64 {
	return xxh3.Hash(raw)
}
