// Package solver solves small bounded integer linear programs.
//
// A Model holds integer variables with finite bounds, a linear objective to
// maximize and linear constraints. Solve runs branch-and-bound over LP
// relaxations solved by a bounded-variable simplex on gonum dense matrices,
// warm-started from the parent node's basis.
package solver

import (
	"errors"
	"fmt"
)

// ErrEmptyModel is returned when a model without variables is submitted
var ErrEmptyModel = errors.New("solver: model has no variables")

// Sense is the relation between a constraint's left-hand side and its bound
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// holds reports whether lhs (sense) rhs is satisfied within tol
func (s Sense) holds(lhs, rhs, tol float64) bool {
	switch s {
	case LessEq:
		return lhs <= rhs+tol
	case GreaterEq:
		return lhs >= rhs-tol
	default:
		return lhs >= rhs-tol && lhs <= rhs+tol
	}
}

// Variable is an integer decision variable bounded to [Lower, Upper]
type Variable struct {
	Name  string
	Lower int
	Upper int
}

// Term is one coefficient of a linear expression
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a named linear constraint over model variables
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// eval computes the constraint's left-hand side at x
func (c *Constraint) eval(x []float64) float64 {
	total := 0.0
	for _, t := range c.Terms {
		total += t.Coef * x[t.Var]
	}
	return total
}

// Model is a maximization problem over bounded integer variables
type Model struct {
	Name        string
	Vars        []Variable
	Objective   []float64
	Constraints []Constraint
}

// NewModel creates an empty model
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVariable appends an integer variable and returns its index
func (m *Model) AddVariable(name string, lower, upper int) int {
	m.Vars = append(m.Vars, Variable{Name: name, Lower: lower, Upper: upper})
	m.Objective = append(m.Objective, 0)
	return len(m.Vars) - 1
}

// AddObjective adds coef to the objective coefficient of variable v
func (m *Model) AddObjective(v int, coef float64) {
	m.Objective[v] += coef
}

// AddConstraint appends a constraint. Zero coefficients are dropped.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: kept, Sense: sense, RHS: rhs})
}

// Constraint looks up a constraint by name
func (m *Model) Constraint(name string) (*Constraint, bool) {
	for i := range m.Constraints {
		if m.Constraints[i].Name == name {
			return &m.Constraints[i], true
		}
	}
	return nil, false
}

// Validate checks variable bounds and term indices
func (m *Model) Validate() error {
	if len(m.Vars) == 0 {
		return ErrEmptyModel
	}
	for i, v := range m.Vars {
		if v.Lower > v.Upper {
			return fmt.Errorf("solver: variable %d (%s) has lower bound %d above upper bound %d", i, v.Name, v.Lower, v.Upper)
		}
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(m.Vars) {
				return fmt.Errorf("solver: constraint %s references unknown variable %d", c.Name, t.Var)
			}
		}
	}
	return nil
}

// ObjectiveValue evaluates the objective at x
func (m *Model) ObjectiveValue(x []float64) float64 {
	total := 0.0
	for i, c := range m.Objective {
		total += c * x[i]
	}
	return total
}

// Feasible reports whether x satisfies bounds and every constraint within tol
func (m *Model) Feasible(x []float64, tol float64) bool {
	for i, v := range m.Vars {
		if x[i] < float64(v.Lower)-tol || x[i] > float64(v.Upper)+tol {
			return false
		}
	}
	for i := range m.Constraints {
		c := &m.Constraints[i]
		if !c.Sense.holds(c.eval(x), c.RHS, tol) {
			return false
		}
	}
	return true
}
