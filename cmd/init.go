// configure init
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/configure/internal/builder"
	"github.com/qobs-build/configure/internal/msg"
	"github.com/spf13/cobra"
)

var errExists = errors.New("file already exists")

// writefile creates path with content, never overwriting an existing file
func writefile(content []byte, elem ...string) (string, error) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); err == nil {
		return path, errExists
	} else if !os.IsNotExist(err) {
		return path, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return path, fmt.Errorf("create file %s: %w", path, err)
	}
	return path, nil
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "configure"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn writes the builtin project model into dir
func initIn(dir string) {
	path, err := writefile(builder.DefaultConfig, dir, builder.ConfigFilename)
	if errors.Is(err, errExists) {
		msg.Warn("%s already exists, leaving it alone", filepath.ToSlash(path))
		return
	}
	if err != nil {
		msg.Fatal("%v", err)
	}
	fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))

	programName := getProgramName()
	fmt.Printf("Edit it, then run %s to generate build.ninja.\n", color.HiCyanString(programName+" -C "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the builtin project model to " + builder.ConfigFilename,
	Args:  noArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initIn(flagDir)
	},
}

func init() {
	// configure init subcommand
	rootCmd.AddCommand(initCmd)
}
