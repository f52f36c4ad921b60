package object

import (
	"github.com/pkujhd/goloader"
	"maps"
	"sync"
)

var (
	host     map[string]uintptr
	hostErr  error
	hostOnce sync.Once
	hostMu   sync.Mutex
)

func hostTable() (map[string]uintptr, error) {
	hostOnce.Do(func() {
		host = make(map[string]uintptr)
		hostErr = goloader.RegSymbol(host)
	})
	return host, hostErr
}

// HostSymbols clones the symbols of the host executable, every object link starts from such a clone.
func HostSymbols() (map[string]uintptr, error) {
	h, err := hostTable()
	if err != nil {
		return nil, err
	}
	hostMu.Lock()
	defer hostMu.Unlock()
	return maps.Clone(h), nil
}

// UseHostSo adds the symbols of shared libraries to the host table, links made afterwards may use them.
func UseHostSo(paths ...string) (err error) {
	h, err := hostTable()
	if err != nil {
		return
	}
	hostMu.Lock()
	defer hostMu.Unlock()
	for _, p := range paths {
		if err = goloader.RegSymbolWithSo(h, p); err != nil {
			return
		}
	}
	return
}
