package object

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ZenLiuCN/cunit"
	"github.com/ZenLiuCN/fn"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"unsafe"
)

var (
	debugging     = false
	objectSample  string
	objectRenamed string
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cunit-object")
	if err != nil {
		panic(err)
	}
	objectSample, objectRenamed = artifacts(dir)
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// artifacts uses prebuilt testdata, or builds both object units from testdata/sample.go under dir.
// Empty paths mean the sdk is not prepared for goloader.
func artifacts(dir string) (sample, renamed string) {
	sample, renamed = "../testdata/sample.linkable", "../testdata/renamed.linkable"
	if exists(sample) && exists(renamed) {
		return
	}
	if _, err := exec.LookPath("go"); err != nil {
		return "", ""
	}
	build := func(pkg, name string) string {
		obj := name + ".o"
		if err := Compile(debugging, dir, obj, pkg, []string{"../testdata/sample.go"}); err != nil {
			fmt.Fprintf(os.Stderr, "build %s: %v\n", pkg, err)
			return ""
		}
		b := new(bytes.Buffer)
		if err := Pack(filepath.Join(dir, obj), pkg, b); err != nil {
			fmt.Fprintf(os.Stderr, "pack %s: %v\n", pkg, err)
			return ""
		}
		out := filepath.Join(dir, name+".linkable")
		if err := os.WriteFile(out, b.Bytes(), 0o644); err != nil {
			return ""
		}
		return out
	}
	return build("sample", "sample"), build("other/sample", "renamed")
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func requireObject(t *testing.T, files ...string) {
	t.Helper()
	for _, f := range files {
		if f == "" {
			t.Skip("object units not built, see testdata/README")
		}
	}
}

func requireHost(t *testing.T) {
	t.Helper()
	if _, err := HostSymbols(); err != nil {
		t.Skipf("host symbols unavailable: %v", err)
	}
}

func answer() int {
	return 42
}

func TestAsSurvivesGC(t *testing.T) {
	f := answer
	code := **(**uintptr)(unsafe.Pointer(&f))
	g := as[func() int](code)
	for i := 0; i < 8; i++ {
		garbage := make([][]byte, 0, 1024)
		for j := 0; j < 1024; j++ {
			garbage = append(garbage, make([]byte, 64))
		}
		_ = garbage
		runtime.GC()
		if got := g(); got != 42 {
			t.Fatalf("call %d returned %d", i, got)
		}
	}
}

func TestEntryOf(t *testing.T) {
	syms := map[string]uintptr{
		"sample.NewCompilationUnit":      1,
		"sample.NewCompilationUnitLater": 2,
		"other.Run":                      3,
		"x.Run":                          4,
	}
	if p := fn.Panic1(entryOf(syms, cunit.DefaultEntry)); p != 1 {
		t.Errorf("entry = %d", p)
	}
	if _, err := entryOf(syms, "Missing"); !errors.Is(err, ErrMissingEntry) {
		t.Errorf("missing: %v", err)
	}
	if _, err := entryOf(syms, "Run"); err == nil {
		t.Errorf("ambiguous entry accepted")
	}
}

type extension struct {
	Name string
}

func TestSymbolsWithTypes(t *testing.T) {
	requireHost(t)
	plain := fn.Panic1(New("").symbols())
	m := New("")
	m.Types = []any{new(extension)}
	extended := fn.Panic1(m.symbols())
	if len(extended) < len(plain) {
		t.Fatalf("types shrank the table: %d < %d", len(extended), len(plain))
	}
	for k := range plain {
		if _, ok := extended[k]; !ok {
			t.Fatalf("lost symbol %s", k)
		}
	}
	extended["scratch"] = 1
	if _, ok := fn.Panic1(HostSymbols())["scratch"]; ok {
		t.Errorf("link table aliases the host table")
	}
}

func TestUseHostSoMissing(t *testing.T) {
	requireHost(t)
	if err := UseHostSo(filepath.Join(t.TempDir(), "missing.so")); err == nil {
		t.Errorf("missing shared object accepted")
	}
}

func TestObjectLoad(t *testing.T) {
	requireObject(t, objectSample)
	cfg := &cunit.Config{Format: cunit.FormatObject, SearchPath: string(filepath.ListSeparator)}
	fn.Panic(cfg.Defaults())
	m := New(cfg.Entry, debugging)
	m.Types = []any{new(extension)}
	rt := cunit.NewRuntime(cfg, nil, m)
	fn.Panic(rt.Load(objectSample))
	fn.Panic(rt.Load(objectSample))
	if rt.Loaded().Len() != 1 {
		t.Errorf("loaded = %v", rt.Loaded().Snapshot())
	}
	if n := m.Modules(); n != 1 {
		t.Errorf("linked %d modules", n)
	}
}

func TestObjectConstructAfterGC(t *testing.T) {
	requireObject(t, objectSample, objectRenamed)
	m := New("", debugging)
	raw := fn.Panic1(cunit.ReadArtifact(objectSample))
	h1 := fn.Panic1(m.Materialize(raw))
	h2 := fn.Panic1(m.Materialize(raw))
	h3 := fn.Panic1(m.Materialize(fn.Panic1(cunit.ReadArtifact(objectRenamed))))
	if h1.ID == h2.ID || h1.Digest != h2.Digest || h1.Digest == h3.Digest {
		t.Errorf("handles %s %s %s", h1, h2, h3)
	}
	runtime.GC()
	runtime.GC()
	for _, h := range []*cunit.Handle{h1, h2, h3} {
		u := fn.Panic1(h.New())
		fn.Panic(u.InitializeCompilationUnit(nil))
	}
}

func TestDescribe(t *testing.T) {
	raw := fn.Panic1(cunit.MarshalEnvelope("Main", "spy", []byte("ok")))
	d := fn.Panic1(Describe(raw))
	if d.Format != cunit.FormatEnvelope || d.Envelope.Name != "Main" || d.Digest != cunit.Digest(raw) {
		t.Errorf("description %s", d)
	}
	if _, err := Describe([]byte("junk")); err == nil {
		t.Errorf("junk described")
	}
	if objectSample == "" {
		return
	}
	d = fn.Panic1(Describe(fn.Panic1(cunit.ReadArtifact(objectSample))))
	if d.Format != cunit.FormatObject || len(d.Packages) == 0 {
		t.Errorf("description %s", d)
	}
	t.Log(d)
}

func TestCopyDir(t *testing.T) {
	src, dest := t.TempDir(), filepath.Join(t.TempDir(), "copy")
	fn.Panic(os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	fn.Panic(os.WriteFile(filepath.Join(src, "a", "b", "f.go"), []byte("package b"), 0o644))
	fn.Panic(os.WriteFile(filepath.Join(src, "top"), []byte("top"), 0o600))
	fn.Panic(CopyDir(src, dest, nil))
	if got := string(fn.Panic1(os.ReadFile(filepath.Join(dest, "a", "b", "f.go")))); got != "package b" {
		t.Errorf("nested copy = %q", got)
	}
	if si := fn.Panic1(os.Stat(filepath.Join(dest, "top"))); si.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", si.Mode())
	}
}
