package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knapsack: maximize 5x + 4y s.t. 6x + 4y <= 24, x + 2y <= 6.
// The relaxation peaks at (3, 1.5); the integer optimum is (4, 0).
func knapsack() *Model {
	m := NewModel("knapsack")
	x := m.AddVariable("x", 0, 10)
	y := m.AddVariable("y", 0, 10)
	m.AddObjective(x, 5)
	m.AddObjective(y, 4)
	m.AddConstraint("c1", []Term{{x, 6}, {y, 4}}, LessEq, 24)
	m.AddConstraint("c2", []Term{{x, 1}, {y, 2}}, LessEq, 6)
	return m
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	sol, err := NewBranchAndBound(Options{}).Solve(context.Background(), knapsack())
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 20.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{4, 0}, sol.Values)
	assert.Greater(t, sol.Nodes, 1)
}

// menuModel builds a full-day plan over n generated dishes: calorie and
// protein bands, per-meal calorie floors and a fruit serving range.
func menuModel(n int) *Model {
	m := NewModel(fmt.Sprintf("menu_%d", n))
	var calories, protein, fruits []Term
	meals := make([][]Term, 3)
	for i := 0; i < n; i++ {
		cal := float64(40 + (i*53)%460)
		prot := float64((i*37)%451) / 10
		fruit := i%9 == 4
		if fruit {
			prot = float64((i*7)%20) / 10
		}
		v := m.AddVariable(fmt.Sprintf("dish_%d", i), 0, 3)
		m.AddObjective(v, prot-0.1)
		calories = append(calories, Term{v, cal})
		protein = append(protein, Term{v, prot})
		meals[i%3] = append(meals[i%3], Term{v, cal})
		if fruit {
			fruits = append(fruits, Term{v, 1})
		}
	}
	m.AddConstraint("Min_Calories", calories, GreaterEq, 1700)
	m.AddConstraint("Max_Calories", calories, LessEq, 2300)
	m.AddConstraint("Min_Protein", protein, GreaterEq, 130)
	m.AddConstraint("Max_Protein", protein, LessEq, 170)
	m.AddConstraint("Min_breakfast_calories", meals[0], GreaterEq, 2000.0/3*0.5)
	m.AddConstraint("Min_lunch_calories", meals[1], GreaterEq, 2000.0/3*0.8)
	m.AddConstraint("Min_dinner_calories", meals[2], GreaterEq, 2000.0/3*0.8)
	m.AddConstraint("Min_Fruits", fruits, GreaterEq, 1)
	m.AddConstraint("Max_Fruits", fruits, LessEq, 3)
	return m
}

func TestBranchAndBound_MenuScale(t *testing.T) {
	cases := []struct {
		dishes int
		want   float64
	}{
		{30, 169.3},
		{100, 169.4},
		{150, 169.5},
		{200, 169.5},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d dishes", tc.dishes), func(t *testing.T) {
			m := menuModel(tc.dishes)
			sol, err := NewBranchAndBound(Options{Timeout: 2 * time.Second}).Solve(context.Background(), m)
			require.NoError(t, err)

			require.Equal(t, StatusOptimal, sol.Status, "after %d nodes", sol.Nodes)
			assert.InDelta(t, tc.want, sol.Objective, 1e-6)
			assert.True(t, m.Feasible(sol.Values, feasTol))
			for _, v := range sol.Values {
				assert.Equal(t, math.Round(v), v)
			}
			assert.Less(t, sol.Duration, time.Second)
		})
	}
}

// exhaustive enumerates every integer point of m and reports the best
// objective, with ok false when no point is feasible.
func exhaustive(m *Model) (best float64, ok bool) {
	x := make([]float64, len(m.Vars))
	var walk func(i int)
	walk = func(i int) {
		if i == len(x) {
			if !m.Feasible(x, feasTol) {
				return
			}
			if v := m.ObjectiveValue(x); !ok || v > best {
				best, ok = v, true
			}
			return
		}
		for v := m.Vars[i].Lower; v <= m.Vars[i].Upper; v++ {
			x[i] = float64(v)
			walk(i + 1)
		}
	}
	walk(0)
	return best, ok
}

func TestBranchAndBound_MatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for k := 0; k < 200; k++ {
		m := NewModel(fmt.Sprintf("random_%d", k))
		n := 2 + rng.Intn(3)
		for i := 0; i < n; i++ {
			v := m.AddVariable(fmt.Sprintf("x%d", i), 0, 1+rng.Intn(3))
			m.AddObjective(v, float64(rng.Intn(91)-30)/10)
		}
		for r := 1 + rng.Intn(3); r > 0; r-- {
			terms := make([]Term, 0, n)
			for i := 0; i < n; i++ {
				terms = append(terms, Term{i, float64(rng.Intn(21) - 5)})
			}
			m.AddConstraint(fmt.Sprintf("row_%d", r), terms, Sense(rng.Intn(3)), float64(rng.Intn(25)-4))
		}

		want, feasible := exhaustive(m)
		sol, err := NewBranchAndBound(Options{}).Solve(context.Background(), m)
		require.NoError(t, err, m.Name)

		if !feasible {
			assert.Equal(t, StatusInfeasible, sol.Status, m.Name)
			continue
		}
		require.Equal(t, StatusOptimal, sol.Status, m.Name)
		assert.InDelta(t, want, sol.Objective, 1e-6, m.Name)
		assert.True(t, m.Feasible(sol.Values, feasTol), m.Name)
	}
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := NewModel("infeasible")
	x := m.AddVariable("x", 0, 3)
	m.AddObjective(x, 1)
	m.AddConstraint("at_least_five", []Term{{x, 1}}, GreaterEq, 5)

	sol, err := NewBranchAndBound(Options{}).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_EmptyConstraints(t *testing.T) {
	t.Run("satisfiable rows are dropped", func(t *testing.T) {
		m := NewModel("trivial")
		x := m.AddVariable("x", 0, 2)
		m.AddObjective(x, 1)
		m.AddConstraint("zero", []Term{{x, 0}}, LessEq, 0)

		sol, err := NewBranchAndBound(Options{}).Solve(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, StatusOptimal, sol.Status)
		assert.Equal(t, []float64{2}, sol.Values)
	})

	t.Run("unsatisfiable rows make the model infeasible", func(t *testing.T) {
		m := NewModel("trivial")
		x := m.AddVariable("x", 0, 2)
		m.AddObjective(x, 1)
		m.AddConstraint("zero", nil, GreaterEq, 1)

		sol, err := NewBranchAndBound(Options{}).Solve(context.Background(), m)
		require.NoError(t, err)
		assert.Equal(t, StatusInfeasible, sol.Status)
	})
}

func TestBranchAndBound_EqualityAndNegativeRHS(t *testing.T) {
	m := NewModel("mixed")
	x := m.AddVariable("x", 0, 2)
	y := m.AddVariable("y", 0, 10)
	z := m.AddVariable("z", 0, 10)
	m.AddObjective(y, 1)
	m.AddObjective(z, 1)
	m.AddConstraint("gap", []Term{{x, -1}, {y, 1}}, LessEq, 1)
	m.AddConstraint("floor", []Term{{x, -1}, {z, -1}}, GreaterEq, -3)
	m.AddConstraint("pin", []Term{{x, 1}}, Equal, 2)

	sol, err := NewBranchAndBound(Options{}).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, []float64{2, 3, 1}, sol.Values)
	assert.True(t, m.Feasible(sol.Values, 1e-9))
}

func TestBranchAndBound_Limits(t *testing.T) {
	t.Run("deadline maps to TimedOut", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		sol, err := NewBranchAndBound(Options{}).Solve(ctx, knapsack())
		require.NoError(t, err)
		assert.Equal(t, StatusTimedOut, sol.Status)
	})

	t.Run("node cap maps to Not Solved", func(t *testing.T) {
		sol, err := NewBranchAndBound(Options{MaxNodes: 1}).Solve(context.Background(), knapsack())
		require.NoError(t, err)
		assert.Equal(t, StatusNotSolved, sol.Status)
		assert.Equal(t, 1, sol.Nodes)
	})

	t.Run("cancellation is an error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewBranchAndBound(Options{}).Solve(ctx, knapsack())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestModel_Validate(t *testing.T) {
	_, err := NewBranchAndBound(Options{}).Solve(context.Background(), NewModel("empty"))
	assert.ErrorIs(t, err, ErrEmptyModel)

	m := NewModel("bad bounds")
	m.AddVariable("x", 3, 1)
	assert.Error(t, m.Validate())

	m = NewModel("bad term")
	m.AddVariable("x", 0, 1)
	m.AddConstraint("c", []Term{{5, 1}}, LessEq, 1)
	assert.Error(t, m.Validate())
}

func TestModel_AddConstraintDropsZeroTerms(t *testing.T) {
	m := NewModel("terms")
	x := m.AddVariable("x", 0, 1)
	y := m.AddVariable("y", 0, 1)
	m.AddConstraint("c", []Term{{x, 0}, {y, 2}}, LessEq, 1)

	c, ok := m.Constraint("c")
	require.True(t, ok)
	assert.Equal(t, []Term{{y, 2}}, c.Terms)
}
