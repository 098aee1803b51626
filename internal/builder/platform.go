package builder

import (
	"runtime"
	"slices"
	"strings"
)

const (
	Emscripten = "emscripten"
	Linux      = "linux"
	Windows    = "win"
	MacOSX     = "macosx"
)

var knownTargets = []string{Emscripten, Linux, Windows, MacOSX}

// KnownTargets returns the platform names accepted as a target
func KnownTargets() []string { return slices.Clone(knownTargets) }

func IsKnownTarget(name string) bool { return slices.Contains(knownTargets, name) }

// detectHost maps a GOOS value to a platform name
func detectHost(goos string) (string, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "windows":
		return Windows, nil
	case "darwin":
		return MacOSX, nil
	default:
		return "", &UnsupportedHostError{GOOS: goos}
	}
}

// Platform is a host or target identity plus the flags accumulated for it during
// configuration. Once configured it is frozen into a Toolchain.
type Platform struct {
	target string
	host   string
	cc     string
	cflags []string
	libs   []string
}

// Resolve returns the platform for the requested target, or for the host when target
// is empty
func Resolve(target, cc string) (*Platform, error) {
	return resolveFor(runtime.GOOS, target, cc)
}

func resolveFor(goos, target, cc string) (*Platform, error) {
	host, err := detectHost(goos)
	if err != nil {
		return nil, err
	}
	if target == "" {
		target = host
	}
	if !IsKnownTarget(target) {
		return nil, &UnsupportedPlatformError{Name: target}
	}
	if cc == "" {
		cc = defaultCompiler
	}
	return &Platform{target: target, host: host, cc: cc}, nil
}

func (p *Platform) Name() string { return p.target }
func (p *Platform) Host() string { return p.host }

// IsCross reports whether binaries for this platform can't run on the host
func (p *Platform) IsCross() bool { return p.target != p.host }

// AddCflags appends compiler flags, keeping their order
func (p *Platform) AddCflags(flags ...string) {
	p.cflags = append(p.cflags, flags...)
}

// AddLibs appends linker flags and libraries, keeping their order
func (p *Platform) AddLibs(libs ...string) {
	p.libs = append(p.libs, libs...)
}

// Compiler returns the compiler binary after cross-compilation substitution
func (p *Platform) Compiler() string {
	switch {
	case p.target == Emscripten:
		return "emcc"
	case p.target == Windows && p.host == Linux:
		return "x86_64-w64-mingw32-gcc"
	}
	return p.cc
}

func (p *Platform) Cflags() string { return strings.Join(p.cflags, " ") }
func (p *Platform) Libs() string   { return strings.Join(p.libs, " ") }

// Toolchain is the frozen configuration of a Platform consumed by edge emission
type Toolchain struct {
	Platform string
	Compiler string
	Cflags   string
	Libs     string
}

func (p *Platform) Toolchain() Toolchain {
	return Toolchain{
		Platform: p.target,
		Compiler: p.Compiler(),
		Cflags:   p.Cflags(),
		Libs:     p.Libs(),
	}
}
