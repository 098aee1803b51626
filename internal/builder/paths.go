package builder

import (
	"path"
	"path/filepath"
	"strings"
)

// Layout holds the output directories of the generated build. Its methods only
// manipulate path strings.
type Layout struct {
	ObjDir      string `toml:"obj"`
	AssetDir    string `toml:"assets"`
	AssetSuffix string `toml:"asset_suffix"`
}

var defaultLayout = Layout{
	ObjDir:      "obj",
	AssetDir:    "bin/assets",
	AssetSuffix: ".dat",
}

func (l *Layout) setDefaults() {
	if l.ObjDir == "" {
		l.ObjDir = defaultLayout.ObjDir
	}
	if l.AssetDir == "" {
		l.AssetDir = defaultLayout.AssetDir
	}
	if l.AssetSuffix == "" {
		l.AssetSuffix = defaultLayout.AssetSuffix
	}
}

// ObjectPaths maps each source to <obj>/<platform>/<basename>.o
func (l Layout) ObjectPaths(platform string, sources ...string) []string {
	objs := make([]string, len(sources))
	for i, src := range sources {
		base := path.Base(filepath.ToSlash(src))
		objs[i] = path.Join(l.ObjDir, platform, strings.TrimSuffix(base, path.Ext(base))+".o")
	}
	return objs
}

// AssetPaths maps each asset to <assets>/<basename><suffix>; the original name stays
// recoverable by trimming the suffix
func (l Layout) AssetPaths(sources ...string) []string {
	dats := make([]string, len(sources))
	for i, src := range sources {
		dats[i] = path.Join(l.AssetDir, path.Base(filepath.ToSlash(src))+l.AssetSuffix)
	}
	return dats
}
