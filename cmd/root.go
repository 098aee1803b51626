// configure [flags]
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/qobs-build/configure/internal/builder"
	"github.com/qobs-build/configure/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagDebug   bool
	flagLLVM    bool
	flagDiff    bool
	flagDir     string
	flagConfig  string
	flagOutput  string
	flagTarget  EnumValue = NewEnumValue("", map[string]string{
		builder.Emscripten: "WebAssembly through emcc",
		builder.Linux:      "Linux desktop",
		builder.Windows:    "Windows desktop (mingw when cross-compiling from linux)",
		builder.MacOSX:     "macOS desktop",
	})
)

// noArgs rejects positional arguments with an ArgumentError
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &builder.ArgumentError{Args: args}
	}
	return nil
}

func options() builder.Options {
	return builder.Options{
		Target:     flagTarget.Value(),
		Debug:      flagDebug,
		UseLLVM:    flagLLVM,
		Verbose:    flagVerbose,
		ConfigPath: flagConfig,
		Output:     flagOutput,
	}
}

func doConfigure(cmd *cobra.Command, args []string) {
	msg.SetVerbose(flagVerbose)

	b, err := builder.NewBuilderInDirectory(flagDir, options())
	if err != nil {
		msg.Fatal("%v", err)
	}

	if flagDiff {
		out, diff, err := b.Diff()
		if err != nil {
			msg.Fatal("%v", err)
		}
		if diff == "" {
			msg.Info("%s is up to date", out.Path)
			return
		}
		fmt.Printf("%s %s\n", color.HiCyanString("Changes to"), out.Path)
		printDiff(diff)
		return
	}

	path, err := b.Configure()
	if err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("wrote %s", path)
}

var rootCmd = &cobra.Command{
	Use:           "configure [flags]",
	Short:         "Generate a build.ninja for the host or a cross target",
	Long:          `Generate a build.ninja for the host or a cross target from the project model in configure.toml`,
	Args:          noArgs,
	Run:           doConfigure,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output (ninja prints full command lines)")
	rootCmd.Flags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug build")
	rootCmd.Flags().BoolVar(&flagLLVM, "use-llvm", false, "Use clang as compiler")
	rootCmd.Flags().BoolVar(&flagDiff, "diff", false, "Print changes to the build description instead of writing it")
	rootCmd.Flags().VarP(&flagTarget, "target", "t", "Target platform, one of "+flagTarget.HelpString()+" (default: host)")
	rootCmd.RegisterFlagCompletionFunc("target", flagTarget.CompletionFunc())

	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", ".", "Project directory")
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Project model (default: "+builder.ConfigFilename+" in the project directory, or the builtin model)")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Build description to write (default: from the project model)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		msg.Error("%v", err)
		os.Exit(1)
	}
}
