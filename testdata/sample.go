//go:generate cunit build -k sample -o sample.o sample.go
//go:generate cunit pack -k sample -o sample.linkable sample.o
//go:generate cunit build -k other/sample -o renamed.o sample.go
//go:generate cunit pack -k other/sample -o renamed.linkable renamed.o

package sample

import "github.com/ZenLiuCN/cunit"

type unit struct {
	inits, runs int
}

func (u *unit) InitializeCompilationUnit(tc *cunit.Context) error {
	u.inits++
	return nil
}

func (u *unit) RunLoadIfAvailable(tc *cunit.Context) error {
	u.runs++
	return nil
}

func NewCompilationUnit() cunit.CompilationUnit {
	return new(unit)
}
