package builder

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ListFiles returns the regular files of dir (relative to fsys) whose extension is
// exactly ext and whose basename isn't excluded. Symlinks are followed, so a link to a
// directory is skipped. The result is sorted.
func ListFiles(fsys fs.FS, dir, ext string, excludes ...string) ([]string, error) {
	dir = path.Clean(filepath.ToSlash(dir))
	if !fs.ValidPath(dir) {
		return nil, fmt.Errorf("invalid source directory %q", dir)
	}

	stat, err := fs.Stat(fsys, dir)
	if err != nil || !stat.IsDir() {
		return nil, &DirectoryNotFoundError{Dir: dir}
	}

	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(sub, "*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("while globbing directory %s: %w", dir, err)
	}

	var files []string
	for _, name := range matches {
		if path.Ext(name) != ext || slices.Contains(excludes, name) {
			continue
		}
		info, err := fs.Stat(sub, name)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path.Join(dir, name))
	}
	slices.Sort(files)
	return files, nil
}
