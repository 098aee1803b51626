package gen

// Generator collects rules and build edges and renders them into a build description
type Generator interface {
	AddRule(rule Rule)
	AddEdge(edge Edge)
	Validate() error
	Generate() string
	BuildFile() string
}

// Rule is a named command template shared by build edges
type Rule struct {
	Name        string
	Command     string
	Depfile     string
	Deps        string
	Description string
}

// Var is a single edge-scoped variable binding
type Var struct {
	Name  string
	Value string
}

// Edge is one declared unit of work: rule + inputs + outputs + dependencies.
// Implicit inputs must exist before the edge runs but are not part of $in.
type Edge struct {
	Outputs  []string
	Rule     string
	Inputs   []string
	Implicit []string
	Vars     []Var
}
