package builder

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pelletier/go-toml/v2"
)

const (
	ConfigFilename = "configure.toml"

	RoleHost   = "host"
	RoleTarget = "target"

	builtinConfigName = "<builtin configure.toml>"
)

// DefaultConfig is the project model used when no configure.toml is present
//
//go:embed default.toml
var DefaultConfig []byte

type Config struct {
	Ninja     NinjaSection
	Layout    Layout
	Converter ConverterSection
	Groups    []GroupSection
	Binaries  []BinarySection

	// sections below may contain conditional sub-tables. [build] is evaluated
	// once per role: Build for the target, HostBuild for the host.
	Build     BuildSection
	HostBuild BuildSection
	Target    PlatformSection
	Host      PlatformSection
	Assets    AssetSection

	name string
}

// staticConfig holds the sections that are decoded without conditions
type staticConfig struct {
	Ninja     NinjaSection     `toml:"ninja"`
	Layout    Layout           `toml:"layout"`
	Converter ConverterSection `toml:"converter"`
	Groups    []GroupSection   `toml:"group"`
	Binaries  []BinarySection  `toml:"binary"`

	// decoded separately by unmarshalConditionalSection
	Build  map[string]any `toml:"build"`
	Target map[string]any `toml:"target"`
	Host   map[string]any `toml:"host"`
	Assets map[string]any `toml:"assets"`
}

// NinjaSection defines the [ninja] section
type NinjaSection struct {
	RequiredVersion string `toml:"required_version"`
	File            string `toml:"file"`
}

// BuildSection defines the [build(.*)] section. `os` in its conditions is the
// platform the flags end up on.
type BuildSection struct {
	Cflags         []string `toml:"cflags"`
	Includes       []string `toml:"includes"`
	PkgConfig      string   `toml:"pkg_config"`
	RevisionDefine string   `toml:"revision_define"`
}

// PlatformSection defines the [target(.*)] and [host(.*)] sections
type PlatformSection struct {
	Cflags   []string `toml:"cflags"`
	Libs     []string `toml:"libs"`
	Packages []string `toml:"packages"`
	// put the cflags of Packages ahead of Cflags; libs keep their order
	PackageCflagsFirst bool `toml:"package_cflags_first"`
}

// AssetSection defines the [assets(.*)] section
type AssetSection struct {
	Dirs    []string `toml:"dirs"`
	Ext     string   `toml:"ext"`
	Exclude []string `toml:"exclude"`
	Files   []string `toml:"files"`
}

// GroupSection defines a [[group]] of sources compiled for one platform role
type GroupSection struct {
	Name     string   `toml:"name"`
	Dir      string   `toml:"dir"`
	Ext      string   `toml:"ext"`
	Exclude  []string `toml:"exclude"`
	Platform string   `toml:"platform"`
	Main     bool     `toml:"main"` // compile edges wait for every converted asset
}

// BinarySection defines a [[binary]] linked from one or more groups
type BinarySection struct {
	Name     string   `toml:"name"`
	Output   string   `toml:"output"`
	Platform string   `toml:"platform"`
	Groups   []string `toml:"groups"`
}

// ConverterSection defines the [converter] section
type ConverterSection struct {
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
}

// ConfigEnv is the environment conditional section keys are evaluated in
type ConfigEnv struct {
	OS       string            `expr:"os"`
	TargetOS string            `expr:"target_os"`
	HostOS   string            `expr:"host_os"`
	Debug    bool              `expr:"debug"`
	LLVM     bool              `expr:"llvm"`
	Environ  map[string]string `expr:"environ"`
}

func NewConfigEnv(target, host string, debug, llvm bool) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if i := strings.Index(e, "="); i >= 0 {
			environ[e[:i]] = e[i+1:]
		}
	}

	return ConfigEnv{
		OS:       target,
		TargetOS: target,
		HostOS:   host,
		Debug:    debug,
		LLVM:     llvm,
		Environ:  environ,
	}
}

// For returns a copy of env where `os` is the given platform
func (env ConfigEnv) For(platform string) ConfigEnv {
	env.OS = platform
	return env
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) []byte {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// decodeStrict decodes data into dst and rejects keys dst has no field for
func decodeStrict(data []byte, dst any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// unmarshalConditionalSection parses a section whose sub-tables may be keyed by boolean
// expressions. Matching sub-tables are merged over the base fields in sorted key order.
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	// every sub-table is a condition: none of the section types has a nested table
	programs := make(map[string]*vm.Program)
	for key, val := range sectionMap {
		subMap, ok := val.(map[string]any)
		if !ok {
			baseFields[key] = val
			continue
		}
		program, err := expr.Compile(key, expr.Env(env))
		if err != nil {
			return fmt.Errorf("invalid condition [%s.%q]: %w", name, key, err)
		}
		conditionalFields[key] = subMap
		programs[key] = program
	}

	if len(baseFields) > 0 {
		if err := decodeStrict(mustMarshal(baseFields), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, strictError(err))
		}
	}

	for _, expression := range slices.Sorted(maps.Keys(conditionalFields)) {
		program := programs[expression]

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		matched, ok := result.(bool)
		if !ok {
			return fmt.Errorf("expression for [%s.%q] returned %T, expected bool", name, expression, result)
		}
		if !matched {
			continue
		}

		var condSection T
		if err := decodeStrict(mustMarshal(conditionalFields[expression]), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, strictError(err))
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

func decodeError(err error) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		return errors.New(derr.String())
	}
	return err
}

// strictError names the keys a strict decode could not place
func strictError(err error) error {
	var serr *toml.StrictMissingError
	if !errors.As(err, &serr) {
		return err
	}
	keys := make([]string, 0, len(serr.Errors))
	for _, e := range serr.Errors {
		keys = append(keys, strings.Join(e.Key(), "."))
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

// ParseConfig parses a project model. Conditional [target] and [assets] sections are
// evaluated against target, [host] against host and [build] against both. Unknown keys
// and conditions that don't compile are a ConfigError.
func ParseConfig(data []byte, name string, target, host ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	if err := toml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("%s: %w", name, decodeError(err))
	}
	var static staticConfig
	if err := decodeStrict(data, &static); err != nil {
		return nil, &ConfigError{Path: name, Reason: decodeError(strictError(err)).Error()}
	}

	cfg := &Config{
		Ninja:     static.Ninja,
		Layout:    static.Layout,
		Converter: static.Converter,
		Groups:    static.Groups,
		Binaries:  static.Binaries,
		name:      name,
	}

	sections := []func() error{
		func() error { return unmarshalConditionalSection(rawConfig, "build", &cfg.Build, target) },
		func() error { return unmarshalConditionalSection(rawConfig, "build", &cfg.HostBuild, host) },
		func() error { return unmarshalConditionalSection(rawConfig, "target", &cfg.Target, target) },
		func() error { return unmarshalConditionalSection(rawConfig, "host", &cfg.Host, host) },
		func() error { return unmarshalConditionalSection(rawConfig, "assets", &cfg.Assets, target) },
	}
	for _, load := range sections {
		if err := load(); err != nil {
			return nil, &ConfigError{Path: name, Reason: err.Error()}
		}
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the project model from path. An empty path means configure.toml in
// basedir, or DefaultConfig if there is none.
func LoadConfig(basedir, path string, target, host ConfigEnv) (*Config, error) {
	name := path
	if path == "" {
		name = filepath.Join(basedir, ConfigFilename)
		if _, err := os.Stat(name); errors.Is(err, os.ErrNotExist) {
			return ParseConfig(DefaultConfig, builtinConfigName, target, host)
		}
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data, name, target, host)
}

func (cfg *Config) Name() string { return cfg.name }

func (cfg *Config) setDefaults() {
	if cfg.Ninja.File == "" {
		cfg.Ninja.File = "build.ninja"
	}
	cfg.Layout.setDefaults()
	if cfg.Build.PkgConfig == "" {
		cfg.Build.PkgConfig = defaultPkgConfig
	}
	if cfg.HostBuild.PkgConfig == "" {
		cfg.HostBuild.PkgConfig = defaultPkgConfig
	}
	for i := range cfg.Groups {
		if cfg.Groups[i].Ext == "" {
			cfg.Groups[i].Ext = ".c"
		}
		if cfg.Groups[i].Platform == "" {
			cfg.Groups[i].Platform = RoleTarget
		}
	}
	for i := range cfg.Binaries {
		if cfg.Binaries[i].Platform == "" {
			cfg.Binaries[i].Platform = RoleTarget
		}
	}
}

func (cfg *Config) errorf(format string, a ...any) error {
	return &ConfigError{Path: cfg.name, Reason: fmt.Sprintf(format, a...)}
}

func validRole(role string) bool { return role == RoleHost || role == RoleTarget }

// Group returns the group with the given name
func (cfg *Config) Group(name string) (GroupSection, bool) {
	for _, g := range cfg.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return GroupSection{}, false
}

// Binary returns the binary with the given name
func (cfg *Config) Binary(name string) (BinarySection, bool) {
	for _, b := range cfg.Binaries {
		if b.Name == name {
			return b, true
		}
	}
	return BinarySection{}, false
}

// Validate checks the references between groups, binaries and the converter
func (cfg *Config) Validate() error {
	groups := make(map[string]bool)
	mainGroup := ""
	for i, g := range cfg.Groups {
		if g.Name == "" {
			return cfg.errorf("group #%d has no name", i+1)
		}
		if groups[g.Name] {
			return cfg.errorf("group %q is declared twice", g.Name)
		}
		groups[g.Name] = true
		if g.Dir == "" {
			return cfg.errorf("group %q has no dir", g.Name)
		}
		if !validRole(g.Platform) {
			return cfg.errorf("group %q: platform must be %q or %q, got %q", g.Name, RoleHost, RoleTarget, g.Platform)
		}
		if g.Main {
			if mainGroup != "" {
				return cfg.errorf("groups %q and %q are both main", mainGroup, g.Name)
			}
			mainGroup = g.Name
		}
	}

	binaries := make(map[string]bool)
	roles := make(map[string]string)
	for i, b := range cfg.Binaries {
		if b.Name == "" {
			return cfg.errorf("binary #%d has no name", i+1)
		}
		if binaries[b.Name] {
			return cfg.errorf("binary %q is declared twice", b.Name)
		}
		binaries[b.Name] = true
		if b.Output == "" {
			return cfg.errorf("binary %q has no output", b.Name)
		}
		if !validRole(b.Platform) {
			return cfg.errorf("binary %q: platform must be %q or %q, got %q", b.Name, RoleHost, RoleTarget, b.Platform)
		}
		if other, ok := roles[b.Platform]; ok {
			return cfg.errorf("binaries %q and %q are both built for the %s", other, b.Name, b.Platform)
		}
		roles[b.Platform] = b.Name
		for _, name := range b.Groups {
			g, ok := cfg.Group(name)
			if !ok {
				return cfg.errorf("binary %q links unknown group %q", b.Name, name)
			}
			if g.Platform != b.Platform {
				return cfg.errorf("binary %q is built for the %s but group %q is compiled for the %s", b.Name, b.Platform, name, g.Platform)
			}
		}
	}
	if _, ok := roles[RoleTarget]; !ok {
		return cfg.errorf("no binary is built for the target")
	}

	hasAssets := len(cfg.Assets.Dirs) > 0 || len(cfg.Assets.Files) > 0
	if cfg.Converter.Binary == "" {
		if hasAssets {
			return cfg.errorf("assets are configured but [converter] names no binary")
		}
		return nil
	}
	conv, ok := cfg.Binary(cfg.Converter.Binary)
	if !ok {
		return cfg.errorf("converter binary %q is not declared", cfg.Converter.Binary)
	}
	if conv.Platform != RoleHost {
		return cfg.errorf("converter binary %q must be built for the host", conv.Name)
	}
	return nil
}
