package main

import (
	"bytes"
	"fmt"
	. "github.com/ZenLiuCN/cunit"
	"github.com/ZenLiuCN/cunit/internal/builtin"
	"github.com/ZenLiuCN/cunit/object"
	"github.com/ZenLiuCN/fn"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v2"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func main() {
	app := cli.NewApp()
	app.Name = "cunit"
	app.Usage = "compilation unit loader"
	app.Description = "load compilation units into a fresh runtime, build and inspect unit artifacts"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, EnvVars: []string{"CUNIT_DEBUG"}},
	}
	app.Before = func(ctx *cli.Context) error {
		if ctx.Bool("debug") {
			commonlog.Configure(2, nil)
		} else {
			commonlog.Configure(0, nil)
		}
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:   "load",
			Action: load,
			Usage:  "load units in order, the bootstrap unit when none given",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "toml config file"},
				&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "bootstrap search path, before search_path of config then " + SearchPathEnv + " then the executable directory"},
				&cli.StringFlag{Name: "bootstrap", Aliases: []string{"b"}, Usage: "bootstrap unit identifier"},
				&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "auto, envelope or object"},
				&cli.StringFlag{Name: "entry", Aliases: []string{"e"}, Usage: "constructor symbol of object units"},
				&cli.StringSliceFlag{Name: "so", Usage: "shared library whose symbols object units may use, added to shared_objects of config"},
			},
			Args: true,
		},
		{
			Name:   "wrap",
			Action: wrap,
			Usage:  "wrap a payload file into an envelope unit",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Required: true, Usage: "registered unit kind"},
				&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "declared name, informative only"},
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
			},
			Args: true,
		},
		{Name: "prepare", Action: prepare, Usage: "copy internals of go sdk, required by build, pack and object units"},
		{Name: "clean", Action: clean, Usage: "remove copied internals of go sdk"},
		{
			Name:   "build",
			Action: build,
			Usage:  "compile go sources to an object file, '.' for the working directory",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pkg", Aliases: []string{"k"}, Usage: "package path or default main"},
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "unit.o"},
			},
			Args: true,
		},
		{
			Name:   "pack",
			Action: pack,
			Usage:  "link an object file or archive into an object unit",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pkg", Aliases: []string{"k"}, Usage: "package path or default main"},
				&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true},
			},
			Args: true,
		},
		{
			Name:   "inspect",
			Action: inspect,
			Usage:  "describe unit artifacts",
			Args:   true,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("failure %s", err)
	}
}

// config merges flags over the config file, the rest is filled by Config.Defaults.
func config(ctx *cli.Context) (c *Config, err error) {
	if p := ctx.String("config"); p != "" {
		if c, err = LoadConfig(p); err != nil {
			return
		}
	} else {
		c = new(Config)
	}
	if v := ctx.String("path"); v != "" {
		c.SearchPath = v
	}
	if v := ctx.String("bootstrap"); v != "" {
		c.Bootstrap = v
	}
	if v := ctx.String("format"); v != "" {
		c.Format = Format(v)
	}
	if v := ctx.String("entry"); v != "" {
		c.Entry = v
	}
	c.SharedObjects = append(c.SharedObjects, ctx.StringSlice("so")...)
	c.Debug = c.Debug || ctx.Bool("debug")
	err = c.Defaults()
	return
}

func load(ctx *cli.Context) (err error) {
	var c *Config
	if c, err = config(ctx); err != nil {
		return
	}
	if len(c.SharedObjects) > 0 {
		if err = object.UseHostSo(c.SharedObjects...); err != nil {
			return fmt.Errorf("shared objects: %w", err)
		}
	}
	rt := NewRuntime(c, builtin.Register(NewRegistry(), os.Stdout), object.New(c.Entry, c.Debug))
	ids := ctx.Args().Slice()
	if len(ids) == 0 {
		ids = []string{c.Bootstrap}
	}
	for _, id := range ids {
		err = rt.Load(id)
		if OutcomeOf(err) == Transferred {
			if x, ok := err.(*ControlTransfer).Payload.(Exit); ok {
				return cli.Exit("", x.Code)
			}
		}
		if err != nil {
			return
		}
	}
	if c.Debug {
		log.Printf("loaded: %v", rt.Loaded().Snapshot())
	}
	return
}

func wrap(ctx *cli.Context) (err error) {
	var payload []byte
	if ctx.Args().Len() > 0 {
		if payload, err = os.ReadFile(ctx.Args().First()); err != nil {
			return
		}
	}
	var raw []byte
	if raw, err = MarshalEnvelope(ctx.String("name"), ctx.String("kind"), payload); err != nil {
		return
	}
	return os.WriteFile(ctx.String("out"), raw, 0o644)
}

func goroot() string {
	if r := os.Getenv("GOROOT"); r != "" {
		return r
	}
	if out, err := exec.Command("go", "env", "GOROOT").Output(); err == nil {
		return strings.TrimSpace(string(out))
	}
	return ""
}

func clean(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	dir := filepath.Join(goroot(), "src", "cmd", "objfile")
	if d {
		log.Printf("clean go sdk: %s", dir)
	}
	if _, err = os.Stat(dir); err == nil {
		err = os.RemoveAll(dir)
		if d {
			log.Printf("removed %s", dir)
		}
	} else if os.IsNotExist(err) {
		err = nil
		if d {
			log.Printf("did nothing for %s", dir)
		}
	}
	return
}

func prepare(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	root := goroot()
	if root == "" {
		return fmt.Errorf("missing go sdk")
	}
	src := filepath.Join(root, "src", "cmd", "internal")
	dir := filepath.Join(root, "src", "cmd", "objfile")
	if d {
		log.Printf("prepare go sdk from %s to %s", src, dir)
	}
	if _, err = os.Stat(dir); err != nil && os.IsNotExist(err) {
		err = object.CopyDir(src, dir, nil)
		if d {
			log.Printf("copied %s from %s", dir, src)
		}
	} else if d {
		log.Printf("did nothing for %s", dir)
	}
	return
}

func build(ctx *cli.Context) (err error) {
	d := ctx.Bool("debug")
	o := ctx.Args().Slice()
	if len(o) == 0 {
		return fmt.Errorf("missing target sources list")
	}
	if _, err = exec.LookPath("go"); err != nil {
		return fmt.Errorf("missing go sdk: %w ", err)
	}
	if len(o) == 1 && o[0] == "." {
		if o, err = lookup(); err != nil {
			return
		}
		if d {
			log.Printf("found go sources at working directory: %v", o)
		}
	}
	return object.Compile(d, ".", ctx.String("out"), ctx.String("pkg"), o)
}

func pack(ctx *cli.Context) (err error) {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("pack requires exactly one object file")
	}
	b := new(bytes.Buffer)
	if err = object.Pack(ctx.Args().First(), ctx.String("pkg"), b); err != nil {
		return
	}
	return os.WriteFile(ctx.String("out"), b.Bytes(), 0o644)
}

func inspect(ctx *cli.Context) (err error) {
	for _, s := range ctx.Args().Slice() {
		var raw []byte
		if raw, err = ReadArtifact(s); err != nil {
			return
		}
		var d object.Description
		if d, err = object.Describe(raw); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
		fmt.Printf("%s\n%s", s, d)
	}
	return
}

func lookup() (v []string, err error) {
	var e []os.DirEntry
	if e, err = os.ReadDir(fn.Panic1(os.Getwd())); err != nil {
		return
	}
	for _, entry := range e {
		n := entry.Name()
		if !entry.IsDir() && strings.HasSuffix(n, ".go") && !strings.HasSuffix(n, "_test.go") {
			v = append(v, n)
		}
	}
	return
}
