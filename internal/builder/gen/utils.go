package gen

import "strings"

// writer accumulates ninja text
type writer struct {
	sb strings.Builder
}

func (w *writer) write(s ...string) {
	for _, str := range s {
		w.sb.WriteString(str)
	}
}

func (w *writer) writeln(s ...string) {
	w.write(s...)
	w.sb.WriteByte('\n')
}

// paths writes each path escaped and preceded by a space
func (w *writer) paths(ps []string) {
	for _, p := range ps {
		w.write(" ", quote(p))
	}
}

// binding writes an indented `name = value` line; an empty value leaves no
// trailing space
func (w *writer) binding(name, value string) {
	if value == "" {
		w.writeln("  ", name, " =")
		return
	}
	w.writeln("  ", name, " = ", value)
}

func (w *writer) String() string { return w.sb.String() }
