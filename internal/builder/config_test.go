package builder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(target, host string, debug bool) (ConfigEnv, ConfigEnv) {
	env := NewConfigEnv(target, host, debug, false)
	return env, env.For(host)
}

func parse(t *testing.T, data, target string, debug bool) (*Config, error) {
	t.Helper()
	targetEnv, hostEnv := testEnv(target, Linux, debug)
	return ParseConfig([]byte(data), "test.toml", targetEnv, hostEnv)
}

const minimalBinaries = `
[[group]]
name = "tic"
dir = "src"

[[binary]]
name = "tic"
output = "bin/tic"
groups = ["tic"]
`

func TestParseDefaultConfig(t *testing.T) {
	for _, target := range KnownTargets() {
		cfg, err := parse(t, string(DefaultConfig), target, false)
		require.NoError(t, err, target)

		assert.Equal(t, "1.8.2", cfg.Ninja.RequiredVersion)
		assert.Equal(t, "build.ninja", cfg.Ninja.File)
		assert.Equal(t, defaultLayout, cfg.Layout)
		assert.Len(t, cfg.Groups, 7)
		assert.Len(t, cfg.Binaries, 2)
		assert.Equal(t, "bin2txt", cfg.Converter.Binary)
		assert.Equal(t, []string{"-Wall", "-std=c99", "-O2", "-DNDEBUG"}, cfg.Build.Cflags)
		assert.Equal(t, []string{"gtk+-3.0"}, cfg.Host.Packages, "host is linux")
		assert.True(t, cfg.Host.PackageCflagsFirst)
	}
}

func TestConditionalSections(t *testing.T) {
	cfg, err := parse(t, string(DefaultConfig), Linux, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall", "-std=c99", "-g"}, cfg.Build.Cflags)
	assert.Equal(t, []string{"-D_GNU_SOURCE"}, cfg.Target.Cflags)
	assert.Equal(t, []string{"gtk+-3.0"}, cfg.Target.Packages)
	assert.Empty(t, cfg.Assets.Files)

	cfg, err = parse(t, string(DefaultConfig), Windows, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"-Ibuild/windows/include"}, cfg.Target.Cflags)
	assert.Empty(t, cfg.Target.Packages)
	assert.Contains(t, cfg.Target.Libs, "-lws2_32")

	cfg, err = parse(t, string(DefaultConfig), Emscripten, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"demos"}, cfg.Assets.Dirs)
	assert.Equal(t, ".tic", cfg.Assets.Ext)
	assert.Equal(t, []string{"build/html/index.html", "build/html/tic.js"}, cfg.Assets.Files)
	assert.Empty(t, cfg.Target.Cflags)
}

func TestConditionalMergeOrderIsSorted(t *testing.T) {
	data := `
[build]
cflags = ["-base"]

[build.'os == "linux"']
cflags = ["-linux"]

[build.'debug || os == "linux"']
cflags = ["-either"]

[build.'!debug']
cflags = ["-release"]
` + minimalBinaries

	for range 10 {
		cfg, err := parse(t, data, Linux, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"-base", "-release", "-either", "-linux"}, cfg.Build.Cflags)
	}
}

func TestConditionalEnvironment(t *testing.T) {
	t.Setenv("TIC_EXTRA", "1")
	data := `
[target.'environ["TIC_EXTRA"] == "1"']
cflags = ["-DEXTRA"]

[target.'target_os != host_os']
cflags = ["-DCROSS"]

[host.'os == "linux"']
cflags = ["-DHOST_LINUX"]

[host.'os == "win"']
cflags = ["-DHOST_WIN"]
` + minimalBinaries

	cfg, err := parse(t, data, Windows, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"-DEXTRA", "-DCROSS"}, cfg.Target.Cflags)
	assert.Equal(t, []string{"-DHOST_LINUX"}, cfg.Host.Cflags)
}

func TestConditionalNonBool(t *testing.T) {
	data := `
[build.'target_os + "x"']
cflags = ["-x"]
` + minimalBinaries
	_, err := parse(t, data, Linux, false)
	assert.ErrorContains(t, err, "expected bool")
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(t, minimalBinaries, Linux, false)
	require.NoError(t, err)

	assert.Equal(t, "build.ninja", cfg.Ninja.File)
	assert.Equal(t, defaultPkgConfig, cfg.Build.PkgConfig)
	assert.Equal(t, defaultPkgConfig, cfg.HostBuild.PkgConfig)
	assert.Equal(t, ".c", cfg.Groups[0].Ext)
	assert.Equal(t, RoleTarget, cfg.Groups[0].Platform)
	assert.Equal(t, RoleTarget, cfg.Binaries[0].Platform)
}

func TestUnknownKeysAndBadConditions(t *testing.T) {
	tests := []struct {
		name, data, want string
	}{
		{
			name: "misspelled name",
			data: `
[target.'targt_os == "linux"']
libs = ["-lz"]
packages = ["gtk+-3.0"]
`,
			want: `invalid condition [target."targt_os == \"linux\""]`,
		},
		{
			name: "assignment instead of comparison",
			data: `
[host.'os = "linux"']
packages = ["gtk+-3.0"]
`,
			want: `invalid condition [host."os = \"linux\""]`,
		},
		{
			name: "unknown base key",
			data: `
[target]
libz = ["-lz"]
`,
			want: "unknown keys: libz",
		},
		{
			name: "unknown key in condition",
			data: `
[build.'debug || !debug']
package = ["gtk+-3.0"]
`,
			want: "unknown keys: package",
		},
		{
			name: "misspelled table",
			data: `
[[groups]]
name = "ext"
dir = "src/ext"
`,
			want: "unknown keys: groups",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.data+minimalBinaries, Linux, false)
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, "test.toml", cerr.Path)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildSectionPerRole(t *testing.T) {
	data := `
[build]
cflags = ["-Wall"]
pkg_config = "pkg-config"

[build.'os == "win"']
cflags = ["-DWIN"]
pkg_config = "x86_64-w64-mingw32-pkg-config"
` + minimalBinaries

	cfg, err := parse(t, data, Windows, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wall", "-DWIN"}, cfg.Build.Cflags)
	assert.Equal(t, "x86_64-w64-mingw32-pkg-config", cfg.Build.PkgConfig)
	assert.Equal(t, []string{"-Wall"}, cfg.HostBuild.Cflags, "host is linux")
	assert.Equal(t, "pkg-config", cfg.HostBuild.PkgConfig)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := parse(t, "[build\ncflags = 1", Linux, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.toml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name, data, want string
	}{
		{
			name: "unknown group",
			data: `
[[binary]]
name = "tic"
output = "bin/tic"
groups = ["nope"]
`,
			want: `unknown group "nope"`,
		},
		{
			name: "role mismatch",
			data: `
[[group]]
name = "tools"
dir = "tools"
platform = "host"

[[binary]]
name = "tic"
output = "bin/tic"
groups = ["tools"]
`,
			want: `group "tools" is compiled for the host`,
		},
		{
			name: "bad role",
			data: `
[[group]]
name = "tic"
dir = "src"
platform = "device"
` + minimalBinaries,
			want: `platform must be`,
		},
		{
			name: "duplicate group",
			data: `
[[group]]
name = "tic"
dir = "src2"
` + minimalBinaries,
			want: `group "tic" is declared twice`,
		},
		{
			name: "two main groups",
			data: `
[[group]]
name = "a"
dir = "a"
main = true

[[group]]
name = "b"
dir = "b"
main = true
` + minimalBinaries,
			want: `are both main`,
		},
		{
			name: "two target binaries",
			data: minimalBinaries + `
[[binary]]
name = "tic2"
output = "bin/tic2"
groups = ["tic"]
`,
			want: `both built for the target`,
		},
		{
			name: "no target binary",
			data: `
[[group]]
name = "tic"
dir = "src"
`,
			want: `no binary is built for the target`,
		},
		{
			name: "assets without converter",
			data: `
[assets]
dirs = ["demos"]
` + minimalBinaries,
			want: `[converter] names no binary`,
		},
		{
			name: "converter for the target",
			data: `
[converter]
binary = "tic"
` + minimalBinaries,
			want: `must be built for the host`,
		},
		{
			name: "unknown converter",
			data: `
[converter]
binary = "bin2txt"
` + minimalBinaries,
			want: `converter binary "bin2txt" is not declared`,
		},
		{
			name: "group without dir",
			data: `
[[group]]
name = "x"
` + minimalBinaries,
			want: `group "x" has no dir`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.data, Linux, false)
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, "test.toml", cerr.Path)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	targetEnv, hostEnv := testEnv(Linux, Linux, false)

	dir := t.TempDir()
	cfg, err := LoadConfig(dir, "", targetEnv, hostEnv)
	require.NoError(t, err)
	assert.Equal(t, builtinConfigName, cfg.Name())

	path := filepath.Join(dir, ConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(minimalBinaries), 0o644))
	cfg, err = LoadConfig(dir, "", targetEnv, hostEnv)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Name())
	assert.Len(t, cfg.Groups, 1)

	_, err = LoadConfig(dir, filepath.Join(dir, "missing.toml"), targetEnv, hostEnv)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMergeStructs(t *testing.T) {
	dst := GroupSection{Name: "a", Exclude: []string{"x.c"}}
	require.NoError(t, mergeStructs(&dst, GroupSection{Dir: "src", Exclude: []string{"y.c"}, Main: true}))
	assert.Equal(t, GroupSection{Name: "a", Dir: "src", Exclude: []string{"x.c", "y.c"}, Main: true}, dst)

	assert.Error(t, mergeStructs(dst, dst))
	assert.Error(t, mergeStructs(&dst, BinarySection{}))
}
