package builder

import (
	"bytes"
	"os/exec"
	"strings"
)

// FlagProvider supplies compiler and linker flags for system libraries
type FlagProvider interface {
	QueryFlags(pkg string) ([]string, error)
	QueryLibs(pkg string) ([]string, error)
}

const defaultPkgConfig = "pkg-config"

// PkgConfig is a FlagProvider backed by the pkg-config command
type PkgConfig struct {
	Bin string
	Env []string // appended to the inherited environment
}

func (p PkgConfig) QueryFlags(pkg string) ([]string, error) {
	return p.query("--cflags", pkg)
}

func (p PkgConfig) QueryLibs(pkg string) ([]string, error) {
	return p.query("--libs", pkg)
}

func (p PkgConfig) query(mode, pkg string) ([]string, error) {
	bin := p.Bin
	if bin == "" {
		bin = defaultPkgConfig
	}
	args := []string{mode, pkg}

	cmd := exec.Command(bin, args...)
	if len(p.Env) > 0 {
		cmd.Env = append(cmd.Environ(), p.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &ToolInvocationError{
			Tool:   bin,
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return strings.Fields(string(out)), nil
}
