// Package builtin holds the unit kinds shipped with the cunit command.
package builtin

import (
	"fmt"
	"github.com/ZenLiuCN/cunit"
	"io"
	"strconv"
	"strings"
)

const (
	KindPrint = "print"
	KindExit  = "exit"
)

// Register the builtin kinds into r, print units write to out.
func Register(r *cunit.Registry, out io.Writer) *cunit.Registry {
	return r.
		MustRegister(KindPrint, func(payload []byte) (cunit.CompilationUnit, error) {
			return &printUnit{out: out, text: payload}, nil
		}).
		MustRegister(KindExit, func(payload []byte) (cunit.CompilationUnit, error) {
			code, err := strconv.Atoi(strings.TrimSpace(string(payload)))
			if err != nil {
				return nil, fmt.Errorf("exit code %q: %w", payload, err)
			}
			return &exitUnit{code: code}, nil
		})
}

// printUnit writes its payload when its body runs.
type printUnit struct {
	out  io.Writer
	text []byte
}

func (p *printUnit) InitializeCompilationUnit(tc *cunit.Context) error {
	if p.out == nil {
		return tc.Die("print unit without output")
	}
	return nil
}

func (p *printUnit) RunLoadIfAvailable(*cunit.Context) (err error) {
	_, err = p.out.Write(p.text)
	return
}

// exitUnit transfers control with an exit status.
type exitUnit struct {
	code int
}

func (e *exitUnit) InitializeCompilationUnit(*cunit.Context) error {
	return nil
}

func (e *exitUnit) RunLoadIfAvailable(tc *cunit.Context) error {
	return tc.Transfer(cunit.Exit{Code: e.code})
}
