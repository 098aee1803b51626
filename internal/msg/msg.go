package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	verbose bool
)

// SetVerbose enables or disables Verbose output
func SetVerbose(v bool) { verbose = v }

func IsVerbose() bool { return verbose }

func emit(w io.Writer, prefix, format string, a ...any) {
	fmt.Fprint(w, prefix)
	fmt.Fprint(w, ": ")
	fmt.Fprintf(w, format, a...)
	fmt.Fprint(w, "\n")
}

func Error(format string, a ...any) {
	emit(Stderr, color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	emit(Stderr, color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	emit(Stderr, color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	emit(Stdout, color.HiGreenString("info"), format, a...)
}

// Verbose prints only when verbose output was requested
func Verbose(format string, a ...any) {
	if !verbose {
		return
	}
	emit(Stdout, color.HiBlackString("verbose"), format, a...)
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			if _, err := w.W.Write([]byte(w.Indent)); err != nil {
				return n, err
			}
			w.didIndent = true
		}
		if _, err := w.W.Write([]byte{c}); err != nil { // FIXME-perf: buffer this
			return n, err
		}
		n++
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return n, nil
}
