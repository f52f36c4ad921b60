package object

import (
	"bytes"
	"fmt"
	"github.com/ZenLiuCN/cunit"
	"github.com/ZenLiuCN/fn"
	"github.com/pkujhd/goloader"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// CopyFile from src to dest with optional src file info
func CopyFile(src string, dest string, si fs.FileInfo) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer fn.IgnoreClose(sf)
	df, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer fn.IgnoreClose(df)
	if _, err = io.Copy(df, sf); err != nil {
		return
	}
	if si == nil {
		if si, err = os.Stat(src); err != nil {
			return
		}
	}
	return os.Chmod(dest, si.Mode())
}

// CopyDir from src to dest with optional src file info, used to prepare the go sdk.
func CopyDir(src string, dest string, si fs.FileInfo) (err error) {
	if si == nil {
		if si, err = os.Stat(src); err != nil {
			return err
		}
	}
	if err = os.MkdirAll(dest, si.Mode()); err != nil {
		return err
	}
	return filepath.Walk(src, func(path string, info fs.FileInfo, err error) error {
		if err != nil || path == src {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dp := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(dp, info.Mode())
		}
		return CopyFile(path, dp, info)
	})
}

// Compile go sources of package pkg into an object file under dir, importcfg is generated first.
func Compile(debug bool, dir, out, pkg string, sources []string) (err error) {
	if pkg == "" {
		pkg = "main"
	}
	cfg := filepath.Join(dir, "importcfg")
	if err = importcfg(debug, cfg, sources); err != nil {
		return
	}
	args := append([]string{"tool", "compile", "-importcfg", cfg, "-p", pkg, "-o", filepath.Join(dir, out)}, sources...)
	cmd := exec.Command("go", args...)
	if debug {
		logger.Debugf("execute: %v", cmd.Args)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err == nil && !debug {
		err = os.Remove(cfg)
	}
	return
}

func importcfg(debug bool, path string, sources []string) (err error) {
	var cfg *os.File
	if cfg, err = os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644); err != nil {
		return
	}
	defer fn.IgnoreClose(cfg)
	cmd := exec.Command("go", append([]string{"list", "-export", "-f", "{{.Imports}}"}, sources...)...)
	var bout []byte
	if bout, err = cmd.Output(); err != nil {
		return fmt.Errorf("inspect imports: %w", err)
	}
	out := strings.TrimSpace(string(bout))
	out = strings.TrimSuffix(strings.TrimPrefix(out, "["), "]")
	deps := strings.Fields(out)
	if debug {
		logger.Debugf("deps %v", deps)
	}
	cmd = exec.Command("go", append([]string{"list", "-export", "-f", "{{if .Export}}packagefile {{.ImportPath}}={{.Export}}{{end}}", "std"}, deps...)...)
	if bout, err = cmd.Output(); err != nil {
		return fmt.Errorf("inspect dependencies: %w", err)
	}
	_, err = cfg.Write(bout)
	return
}

// Pack links an object file or archive and writes the serialized linker, which is the object artifact format.
func Pack(file, pkg string, out io.Writer) (err error) {
	if pkg == "" {
		pkg = "main"
	}
	var linker *goloader.Linker
	if linker, err = goloader.ReadObj(file, pkg); err != nil {
		return
	}
	return goloader.Serialize(linker, out)
}

// Info describes one package of an object artifact.
type Info struct {
	File    string
	PkgPath string
	Imports []string
}

func (i Info) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("%s (%s)\n", i.PkgPath, i.File))
	for _, p := range i.Imports {
		s.WriteString(fmt.Sprintf("\t%s\n", p))
	}
	return s.String()
}

// Description of a raw artifact.
type Description struct {
	Format   cunit.Format
	Digest   uint64
	Envelope *cunit.Envelope //set for envelopes
	Packages []Info          //set for objects
}

func (d Description) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("format: %s\ndigest: %016x\n", d.Format, d.Digest))
	if e := d.Envelope; e != nil {
		s.WriteString(fmt.Sprintf("kind: %s\ndeclared name: %s\npayload: %d bytes\n", e.Kind, e.Name, len(e.Payload)))
	}
	for _, p := range d.Packages {
		s.WriteString(p.String())
	}
	return s.String()
}

// Describe a raw artifact without materializing it.
func Describe(raw []byte) (d Description, err error) {
	d.Digest = cunit.Digest(raw)
	if e, er := cunit.UnmarshalEnvelope(raw); er == nil {
		d.Format = cunit.FormatEnvelope
		d.Envelope = e
		return
	}
	var linker *goloader.Linker
	if linker, err = goloader.UnSerialize(bytes.NewReader(raw)); err != nil {
		return d, fmt.Errorf("unknown artifact format: %w", err)
	}
	d.Format = cunit.FormatObject
	for _, pkg := range linker.Packages {
		imports := slices.Clone(pkg.ImportPkgs)
		slices.Sort(imports)
		d.Packages = append(d.Packages, Info{File: pkg.File, PkgPath: pkg.PkgPath, Imports: imports})
	}
	slices.SortFunc(d.Packages, func(a, b Info) int { return strings.Compare(a.PkgPath, b.PkgPath) })
	return
}
