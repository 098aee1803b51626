package builder

import "os"

const (
	defaultCompiler = "gcc"
	llvmCompiler    = "clang"
)

// selectCompiler picks the compiler used for both host and target before any
// cross-compilation substitution
func selectCompiler(useLLVM bool) string {
	if useLLVM {
		return llvmCompiler
	}
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return defaultCompiler
}
