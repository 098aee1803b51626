package builder

import (
	"fmt"
	"strings"
)

// UnsupportedPlatformError is returned when a requested target is not a known platform
type UnsupportedPlatformError struct {
	Name string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported target platform [%s], known targets: %s", e.Name, strings.Join(knownTargets, ", "))
}

// UnsupportedHostError is returned when the running OS can't be mapped to a platform
type UnsupportedHostError struct {
	GOOS string
}

func (e *UnsupportedHostError) Error() string {
	return fmt.Sprintf("unsupported host platform [%s]", e.GOOS)
}

// DirectoryNotFoundError is returned when a configured source directory is missing
type DirectoryNotFoundError struct {
	Dir string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("directory %s not found", e.Dir)
}

// ToolInvocationError is returned when an external query tool is missing or fails
type ToolInvocationError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolInvocationError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		s += "\n" + e.Stderr
	}
	return s
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// ArgumentError is returned for positional arguments the command doesn't accept
type ArgumentError struct {
	Args []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("unsupported arguments: %s", strings.Join(e.Args, " "))
}

// ConfigError reports an inconsistent project model
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}
