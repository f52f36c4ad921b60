// Package object materializes goloader object artifacts for a cunit Runtime.
//
// It needs a go sdk prepared for [goloader], see the prepare command of cunit.
//
// [goloader]: https://github.com/pkujhd/goloader
package object

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ZenLiuCN/cunit"
	"github.com/ZenLiuCN/fn"
	"github.com/pkujhd/goloader"
	"github.com/tliron/commonlog"
	"slices"
	"strings"
	"sync"
	"unsafe"
)

var logger = commonlog.GetLogger("cunit.object")

// ErrMissingEntry occurs when an object artifact has no entry symbol.
var ErrMissingEntry = errors.New("missing entry symbol")

// Materializer links serialized goloader linkers into fresh code modules.
//
// Each Materialize call starts from its own clone of the host symbols, so modules never
// resolve against each other and identical package paths do not collide. The entry symbol
// is matched by its bare name, the package path declared in the object is ignored.
type Materializer struct {
	Entry string //constructor symbol, func() cunit.CompilationUnit
	Types []any  //extra types registered for every link, as pointers
	Debug bool

	mu      sync.Mutex
	modules []*goloader.CodeModule
}

// New Materializer with the entry symbol, empty for cunit.DefaultEntry.
func New(entry string, debug ...bool) *Materializer {
	if entry == "" {
		entry = cunit.DefaultEntry
	}
	return &Materializer{Entry: entry, Debug: len(debug) > 0 && debug[0]}
}

// symbols for one link: a host clone with the unit interface and Types registered.
func (o *Materializer) symbols() (syms map[string]uintptr, err error) {
	if syms, err = HostSymbols(); err != nil {
		return
	}
	var cu cunit.CompilationUnit
	goloader.RegTypes(syms, &cu)
	if len(o.Types) > 0 {
		goloader.RegTypes(syms, o.Types...)
	}
	return
}

func (o *Materializer) Materialize(raw []byte) (h *cunit.Handle, err error) {
	var syms map[string]uintptr
	if syms, err = o.symbols(); err != nil {
		return
	}
	var linker *goloader.Linker
	if linker, err = goloader.UnSerialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if missing := goloader.UnresolvedSymbols(linker, syms); len(missing) > 0 {
		return nil, fmt.Errorf("unresolved symbols: %s", strings.Join(missing, ", "))
	}
	var module *goloader.CodeModule
	if module, err = goloader.Load(linker, syms); err != nil {
		return nil, fmt.Errorf("link object: %w", err)
	}
	var p uintptr
	if p, err = entryOf(module.Syms, o.Entry); err != nil {
		module.Unload()
		return
	}
	if o.Debug {
		logger.Debugf("linked object entry %s at %x", o.Entry, p)
	}
	// units may keep pointers into the module, it lives as long as the materializer
	o.mu.Lock()
	o.modules = append(o.modules, module)
	o.mu.Unlock()
	ctor := as[func() cunit.CompilationUnit](p)
	return cunit.NewHandle(cunit.Digest(raw), "object:"+o.Entry, func() (cunit.CompilationUnit, error) {
		return ctor(), nil
	}), nil
}

// Modules linked so far.
func (o *Materializer) Modules() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.modules)
}

func entryOf(syms map[string]uintptr, entry string) (p uintptr, err error) {
	var found []string
	for _, k := range fn.MapKeys(syms) {
		if k == entry || strings.HasSuffix(k, "."+entry) {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return 0, fmt.Errorf("%w: %s", ErrMissingEntry, entry)
	case 1:
		return syms[found[0]], nil
	default:
		slices.Sort(found)
		return 0, fmt.Errorf("ambiguous entry %s: %s", entry, strings.Join(found, ", "))
	}
}

// as casts a code address into a callable of type T.
//
// A func value points at a cell holding the code address. The cell is referenced through a
// real pointer so it stays reachable for as long as the returned func does.
func as[T any](code uintptr) T {
	cell := &code
	return *(*T)(unsafe.Pointer(&cell))
}
