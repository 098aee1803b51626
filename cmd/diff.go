package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/configure/internal/msg"
)

func writeDiff(w io.Writer, diff string) {
	iw := &msg.IndentWriter{Indent: "  ", W: w}
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			fmt.Fprint(iw, color.GreenString("%s", line))
		case strings.HasPrefix(line, "- "):
			fmt.Fprint(iw, color.RedString("%s", line))
		default:
			fmt.Fprint(iw, line)
		}
	}
}

func printDiff(diff string) { writeDiff(os.Stdout, diff) }
