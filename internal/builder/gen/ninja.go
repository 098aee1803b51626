package gen

import (
	"fmt"
	"strings"
)

const DefaultRequiredVersion = "1.8.2"

type NinjaGen struct {
	generatedBy     string
	requiredVersion string
	file            string
	rules           []Rule
	edges           []Edge
}

// NewNinjaGen returns a ninja generator. generatedBy ends up in the header comment.
func NewNinjaGen(generatedBy, requiredVersion, file string) *NinjaGen {
	if requiredVersion == "" {
		requiredVersion = DefaultRequiredVersion
	}
	if file == "" {
		file = "build.ninja"
	}
	return &NinjaGen{
		generatedBy:     generatedBy,
		requiredVersion: requiredVersion,
		file:            file,
	}
}

func (g *NinjaGen) BuildFile() string { return g.file }

var ninjaPathEscaper = strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ")

func quote(s string) string { return ninjaPathEscaper.Replace(s) }

func (g *NinjaGen) AddRule(rule Rule) {
	g.rules = append(g.rules, rule)
}

func (g *NinjaGen) AddEdge(edge Edge) {
	g.edges = append(g.edges, edge)
}

func (g *NinjaGen) Rules() []Rule { return g.rules }
func (g *NinjaGen) Edges() []Edge { return g.edges }

// Validate checks that every edge refers to a declared rule and that no output is
// produced by more than one edge
func (g *NinjaGen) Validate() error {
	rules := make(map[string]bool, len(g.rules))
	for _, rule := range g.rules {
		if rules[rule.Name] {
			return fmt.Errorf("rule %q is declared twice", rule.Name)
		}
		rules[rule.Name] = true
	}

	producers := make(map[string]int)
	for i, edge := range g.edges {
		if !rules[edge.Rule] {
			return fmt.Errorf("build edge for %s uses undeclared rule %q", strings.Join(edge.Outputs, " "), edge.Rule)
		}
		if len(edge.Outputs) == 0 {
			return fmt.Errorf("build edge #%d (%s) has no outputs", i, edge.Rule)
		}
		for _, out := range edge.Outputs {
			if prev, ok := producers[out]; ok {
				return fmt.Errorf("output %s is produced by two edges (%s from %s and %s from %s)",
					out, g.edges[prev].Rule, strings.Join(g.edges[prev].Inputs, " "), edge.Rule, strings.Join(edge.Inputs, " "))
			}
			producers[out] = i
		}
	}
	return nil
}

func (g *NinjaGen) Generate() string {
	var w writer

	w.writeln("# DO NOT EDIT THIS FILE. IT IS GENERATED BY ", g.generatedBy, ".")
	w.writeln()
	w.writeln("ninja_required_version = ", g.requiredVersion)
	w.writeln()

	// gen rules
	for _, rule := range g.rules {
		w.writeln("rule ", rule.Name)
		w.binding("command", rule.Command)
		if rule.Depfile != "" {
			w.binding("depfile", rule.Depfile)
		}
		if rule.Deps != "" {
			w.binding("deps", rule.Deps)
		}
		if rule.Description != "" {
			w.binding("description", rule.Description)
		}
		w.writeln()
	}

	for _, edge := range g.edges {
		w.write("build")
		w.paths(edge.Outputs)
		w.write(": ", edge.Rule)
		w.paths(edge.Inputs)
		if len(edge.Implicit) > 0 {
			w.write(" |")
			w.paths(edge.Implicit)
		}
		w.writeln()
		for _, v := range edge.Vars {
			w.binding(v.Name, v.Value)
		}
		w.writeln()
	}

	return w.String()
}
