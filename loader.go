package cunit

import (
	"fmt"
	"golang.org/x/sync/singleflight"
)

// Loader activates compilation units, each identifier at most once per LoadedSet.
type Loader struct {
	Resolver     Resolver
	Materializer Materializer
	debug        bool
	flight       singleflight.Group
}

// NewLoader creates a Loader, an optional debug parameter enables step logging.
func NewLoader(r Resolver, m Materializer, debug ...bool) *Loader {
	return &Loader{
		Resolver:     r,
		Materializer: m,
		debug:        len(debug) > 0 && debug[0],
	}
}

// Load ensures the unit id is activated in the runtime of tc.
//
// It returns nil once the unit is loaded, the same *ControlTransfer when a hook of the unit
// transferred control, or a *FatalError. Only a nil result commits id, so a failed or
// transferred unit is fully activated again by the next Load.
//
// Concurrent loads of one id share a single activation. Cycles are detected along one call
// path only, units of different goroutines waiting on each other deadlock.
func (l *Loader) Load(tc *Context, id string) error {
	loaded := tc.Loaded()
	if loaded.Contains(id) {
		return nil
	}
	if tc.activating(id) {
		err := Die(id, fmt.Errorf("%w: %v", ErrCircularLoad, append(tc.Chain(), id)))
		logger.Errorf("%s", err)
		return err
	}
	_, err, _ := l.flight.Do(id, func() (any, error) {
		if loaded.Contains(id) {
			return nil, nil
		}
		if err := l.activate(tc.enter(id), id); err != nil {
			return nil, err
		}
		loaded.Add(id)
		if l.debug {
			logger.Debugf("committed %s", id)
		}
		return nil, nil
	})
	return err
}

func (l *Loader) activate(tc *Context, id string) (err error) {
	path := l.Resolver.Resolve(id)
	if l.debug && path != id {
		logger.Debugf("resolved %s to %s", id, path)
	}
	defer func() {
		if err == nil {
			return
		}
		if _, ok := asTransfer(err); ok {
			if l.debug {
				logger.Debugf("control transfer from %s", id)
			}
			return
		}
		err = Die(id, err)
		logger.Errorf("%s", err)
	}()
	var raw []byte
	if raw, err = ReadArtifact(path); err != nil {
		return
	}
	var h *Handle
	if err = guard(func() (e error) { h, e = l.Materializer.Materialize(raw); return }); err != nil {
		return
	}
	if l.debug {
		logger.Debugf("materialized %s as %s", id, h)
	}
	var u CompilationUnit
	if u, err = h.New(); err != nil {
		return
	}
	if err = guard(func() error { return u.InitializeCompilationUnit(tc) }); err != nil {
		return
	}
	return guard(func() error { return u.RunLoadIfAvailable(tc) })
}

// guard runs a unit hook, turning panics into returned errors. A panicked *ControlTransfer is returned as is.
func guard(hook func() error) (err error) {
	defer func() {
		switch r := recover().(type) {
		case nil:
		case *ControlTransfer:
			err = r
		case error:
			err = fmt.Errorf("panic: %w", r)
		default:
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook()
}
