package builder

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/qobs-build/configure/internal/builder/gen"
	"github.com/qobs-build/configure/internal/msg"
)

const (
	generatorName = "configure"

	ruleCompile = "cc"
	ruleLink    = "ld"
)

// Options are the command-line choices a build description is generated for
type Options struct {
	Target     string // empty means the host
	Debug      bool
	UseLLVM    bool
	Verbose    bool // ninja prints full command lines instead of descriptions
	ConfigPath string
	Output     string
}

type Builder struct {
	basedir string
	opts    Options
	goos    string
	flags   FlagProvider
}

func NewBuilderInDirectory(path string, opts Options) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return nil, &DirectoryNotFoundError{Dir: path}
	}
	return &Builder{basedir: path, opts: opts, goos: runtime.GOOS}, nil
}

// SetFlagProvider replaces the pkg-config backed FlagProvider
func (b *Builder) SetFlagProvider(p FlagProvider) { b.flags = p }

// plan is a fully validated configuration. Nothing in it changes during emission.
type plan struct {
	cfg    *Config
	host   Toolchain
	target Toolchain
	groups map[string][]string // group name -> sources
	assets []string
}

func (p *plan) toolchain(role string) Toolchain {
	if role == RoleHost {
		return p.host
	}
	return p.target
}

// applySection adds the flags of a [target] or [host] section, querying the FlagProvider
// for every package it names. Section libs always precede package libs; section cflags
// do too unless PackageCflagsFirst is set.
func applySection(p *Platform, sec PlatformSection, flags FlagProvider) error {
	if !sec.PackageCflagsFirst {
		p.AddCflags(sec.Cflags...)
	}
	p.AddLibs(sec.Libs...)
	for _, pkg := range sec.Packages {
		cflags, err := flags.QueryFlags(pkg)
		if err != nil {
			return fmt.Errorf("failed to query cflags of %s for %s: %w", pkg, p.Name(), err)
		}
		libs, err := flags.QueryLibs(pkg)
		if err != nil {
			return fmt.Errorf("failed to query libs of %s for %s: %w", pkg, p.Name(), err)
		}
		msg.Verbose("%s: %s adds %s %s", p.Name(), pkg, strings.Join(cflags, " "), strings.Join(libs, " "))
		p.AddCflags(cflags...)
		p.AddLibs(libs...)
	}
	if sec.PackageCflagsFirst {
		p.AddCflags(sec.Cflags...)
	}
	return nil
}

// commonCflags returns the [build] cflags followed by its include directories
func commonCflags(sec BuildSection) []string {
	cflags := slices.Clone(sec.Cflags)
	for _, include := range sec.Includes {
		cflags = append(cflags, "-I"+include)
	}
	return cflags
}

func (b *Builder) configure() (*plan, error) {
	cc := selectCompiler(b.opts.UseLLVM)
	target, err := resolveFor(b.goos, b.opts.Target, cc)
	if err != nil {
		return nil, err
	}
	host, err := resolveFor(b.goos, "", cc)
	if err != nil {
		return nil, err
	}
	msg.Verbose("host %s, target %s, compiler %s", host.Name(), target.Name(), target.Compiler())

	targetEnv := NewConfigEnv(target.Name(), host.Name(), b.opts.Debug, b.opts.UseLLVM)
	cfg, err := LoadConfig(b.basedir, b.opts.ConfigPath, targetEnv, targetEnv.For(host.Name()))
	if err != nil {
		return nil, err
	}
	msg.Verbose("using project model %s", cfg.Name())

	var targetFlags, hostFlags FlagProvider = b.flags, b.flags
	if b.flags == nil {
		targetFlags = PkgConfig{Bin: cfg.Build.PkgConfig}
		hostFlags = PkgConfig{Bin: cfg.HostBuild.PkgConfig}
	}

	target.AddCflags(commonCflags(cfg.Build)...)
	host.AddCflags(commonCflags(cfg.HostBuild)...)

	if err := applySection(target, cfg.Target, targetFlags); err != nil {
		return nil, err
	}
	if err := applySection(host, cfg.Host, hostFlags); err != nil {
		return nil, err
	}

	if cfg.Build.RevisionDefine != "" {
		if rev, err := headRevision(b.basedir); err != nil {
			msg.Warn("not stamping %s: %v", cfg.Build.RevisionDefine, err)
		} else {
			target.AddCflags(revisionDefine(cfg.Build.RevisionDefine, rev))
		}
	}

	p := &plan{
		cfg:    cfg,
		host:   host.Toolchain(),
		target: target.Toolchain(),
		groups: make(map[string][]string, len(cfg.Groups)),
	}

	fsys := os.DirFS(b.basedir)
	for _, g := range cfg.Groups {
		files, err := ListFiles(fsys, g.Dir, g.Ext, g.Exclude...)
		if err != nil {
			return nil, fmt.Errorf("failed to collect sources for group %q: %w", g.Name, err)
		}
		msg.Verbose("group %s: %d files in %s", g.Name, len(files), g.Dir)
		p.groups[g.Name] = files
	}

	for _, dir := range cfg.Assets.Dirs {
		files, err := ListFiles(fsys, dir, cfg.Assets.Ext, cfg.Assets.Exclude...)
		if err != nil {
			return nil, fmt.Errorf("failed to collect assets: %w", err)
		}
		p.assets = append(p.assets, files...)
	}
	for _, file := range cfg.Assets.Files {
		p.assets = append(p.assets, path.Clean(filepath.ToSlash(file)))
	}

	return p, nil
}

func (b *Builder) describe(description string) string {
	if b.opts.Verbose {
		return ""
	}
	return description
}

func compileEdges(g gen.Generator, layout Layout, tc Toolchain, sources, implicit []string) {
	objs := layout.ObjectPaths(tc.Platform, sources...)
	for i, src := range sources {
		g.AddEdge(gen.Edge{
			Outputs:  objs[i : i+1],
			Rule:     ruleCompile,
			Inputs:   []string{src},
			Implicit: slices.Clone(implicit),
			Vars:     []gen.Var{{Name: "cc", Value: tc.Compiler}, {Name: "cflags", Value: tc.Cflags}},
		})
	}
}

func linkEdge(g gen.Generator, tc Toolchain, output string, objs []string) {
	g.AddEdge(gen.Edge{
		Outputs: []string{output},
		Rule:    ruleLink,
		Inputs:  objs,
		Vars:    []gen.Var{{Name: "ld", Value: tc.Compiler}, {Name: "libs", Value: tc.Libs}},
	})
}

// emit turns a plan into rules and edges: asset conversions, then compile edges per group,
// then one link edge per binary
func (b *Builder) emit(p *plan, file string) (*gen.NinjaGen, error) {
	cfg := p.cfg
	layout := cfg.Layout
	g := gen.NewNinjaGen(generatorName, cfg.Ninja.RequiredVersion, file)

	g.AddRule(gen.Rule{
		Name:        ruleCompile,
		Command:     "$cc -MMD -MF $out.d $cflags -c -o $out $in",
		Depfile:     "$out.d",
		Deps:        "gcc",
		Description: b.describe("CC $out"),
	})
	g.AddRule(gen.Rule{
		Name:        ruleLink,
		Command:     "$ld -o $out $in $libs",
		Description: b.describe("LINK $out"),
	})

	dats := layout.AssetPaths(p.assets...)
	if conv, ok := cfg.Binary(cfg.Converter.Binary); ok {
		command := append([]string{conv.Output, "$in", "$out"}, cfg.Converter.Args...)
		g.AddRule(gen.Rule{
			Name:        conv.Name,
			Command:     strings.Join(command, " "),
			Description: b.describe("CONVERT $out"),
		})
		for i, src := range p.assets {
			g.AddEdge(gen.Edge{
				Outputs:  dats[i : i+1],
				Rule:     conv.Name,
				Inputs:   []string{src},
				Implicit: []string{conv.Output},
			})
		}
	}

	for _, group := range cfg.Groups {
		var implicit []string
		if group.Main {
			implicit = dats
		}
		compileEdges(g, layout, p.toolchain(group.Platform), p.groups[group.Name], implicit)
	}

	for _, bin := range cfg.Binaries {
		tc := p.toolchain(bin.Platform)
		var objs []string
		for _, name := range bin.Groups {
			objs = append(objs, layout.ObjectPaths(tc.Platform, p.groups[name]...)...)
		}
		linkEdge(g, tc, bin.Output, objs)
	}

	if err := g.Validate(); err != nil {
		return nil, &ConfigError{Path: cfg.Name(), Reason: err.Error()}
	}
	return g, nil
}

// Output is a generated build description and the path it belongs at
type Output struct {
	Path string
	Text string
}

func (b *Builder) outputPath(cfg *Config) string {
	file := b.opts.Output
	if file == "" {
		file = cfg.Ninja.File
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(b.basedir, file)
}

// Generate validates the whole configuration and renders the build description in memory
func (b *Builder) Generate() (Output, error) {
	p, err := b.configure()
	if err != nil {
		return Output{}, err
	}
	out := b.outputPath(p.cfg)
	g, err := b.emit(p, filepath.Base(out))
	if err != nil {
		return Output{}, err
	}
	return Output{Path: out, Text: g.Generate()}, nil
}

// Configure generates the build description and writes it. Nothing is written if any
// part of the configuration fails.
func (b *Builder) Configure() (string, error) {
	out, err := b.Generate()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(out.Path, []byte(out.Text)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out.Path, err)
	}
	return out.Path, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it into
// place. An identical existing file is left untouched.
func writeFileAtomic(path string, data []byte) error {
	if old, err := os.ReadFile(path); err == nil && string(old) == string(data) {
		return nil
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	committed = true
	return nil
}
