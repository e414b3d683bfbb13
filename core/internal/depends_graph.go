package internal

import (
	"fmt"
)

// Graph orders service ids so every service comes after the services it
// depends on. Cycles and references to unregistered ids are build errors.
type Graph map[string][]string

func NewDependsGraph() Graph {
	return make(Graph)
}

func (g Graph) AddNode(id string, dependencies ...string) {
	g[id] = dependencies
}

// Build returns the ids in dependency order via a depth-first walk.
func (g Graph) Build() ([]string, error) {
	done := make(map[string]bool)
	inPath := make(map[string]bool)
	ordered := make([]string, 0, len(g))

	for id := range g {
		if err := g.visit(id, done, inPath, &ordered); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

func (g Graph) visit(id string, done, inPath map[string]bool, ordered *[]string) error {
	if inPath[id] {
		return fmt.Errorf("dependency cycle through %q", id)
	}
	if done[id] {
		return nil
	}

	deps, ok := g[id]
	if !ok {
		return fmt.Errorf("dependency %q is not registered", id)
	}

	inPath[id] = true
	for _, dep := range deps {
		if err := g.visit(dep, done, inPath, ordered); err != nil {
			return err
		}
	}
	inPath[id] = false

	done[id] = true
	*ordered = append(*ordered, id)

	return nil
}
