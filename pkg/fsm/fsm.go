// Package fsm holds transition tables for the status enums of the domain
// entities. Every code path that changes a status checks it here.
package fsm

import (
	"fmt"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

type Machine[S ~string] struct {
	name  string
	edges map[S]map[S]bool
}

func New[S ~string](name string, edges map[S][]S) *Machine[S] {
	m := &Machine[S]{name: name, edges: make(map[S]map[S]bool, len(edges))}
	for from, tos := range edges {
		set := make(map[S]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		m.edges[from] = set
	}
	return m
}

func (m *Machine[S]) Can(from, to S) bool {
	return m.edges[from][to]
}

// Terminal reports whether s has no outgoing transitions.
func (m *Machine[S]) Terminal(s S) bool {
	return len(m.edges[s]) == 0
}

// Check accepts staying in the same state and any listed transition.
func (m *Machine[S]) Check(from, to S) error {
	if from == to || m.Can(from, to) {
		return nil
	}
	return apperr.Conflict("%s cannot move from %s to %s", m.name, from, to)
}

func (m *Machine[S]) String() string { return fmt.Sprintf("fsm(%s)", m.name) }
