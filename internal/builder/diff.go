package builder

import (
	"errors"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff generates the build description and returns the lines that differ from the one on
// disk, prefixed with "+ " or "- ". It returns "" when the file is up to date.
func (b *Builder) Diff() (Output, string, error) {
	out, err := b.Generate()
	if err != nil {
		return Output{}, "", err
	}
	old, err := os.ReadFile(out.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Output{}, "", err
	}
	return out, lineDiff(string(old), out.Text), nil
}

func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
