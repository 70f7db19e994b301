package solver

import (
	"container/heap"
	"context"
	"errors"
	"math"
	"time"
)

// Status is the normalized outcome of a solve
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusUndefined  Status = "Undefined"
	StatusNotSolved  Status = "Not Solved"
	StatusTimedOut   Status = "TimedOut"
)

const (
	// integrality and constraint checks
	feasTol = 1e-6
	// minimum objective improvement over the incumbent worth exploring
	gapTol = 1e-7

	DefaultMaxNodes = 50000
	DefaultTimeout  = 30 * time.Second
	DefaultPivotTol = 1e-9
)

// Options bounds the work a solve may do
type Options struct {
	// Timeout caps wall time per solve. Zero means DefaultTimeout, negative disables.
	Timeout time.Duration
	// MaxNodes caps branch-and-bound nodes. Zero means DefaultMaxNodes.
	MaxNodes int
	// PivotTol is the smallest tableau entry the simplex pivots on. Zero means DefaultPivotTol.
	PivotTol float64
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.PivotTol <= 0 {
		o.PivotTol = DefaultPivotTol
	}
	return o
}

// Solution carries the status and, when optimal, one value per variable
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
	Duration  time.Duration
}

// Solver is anything that can solve a Model
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}

// BranchAndBound is a best-first branch-and-bound integer solver that dives
// from each branched node before returning to the queue.
type BranchAndBound struct {
	opts Options
}

// NewBranchAndBound creates a solver with the given limits
func NewBranchAndBound(opts Options) *BranchAndBound {
	return &BranchAndBound{opts: opts.withDefaults()}
}

type node struct {
	lower, upper []float64
	// basis the parent's relaxation finished with
	from *basis
	// parent's relaxation bound
	bound float64
}

// nodeQueue is a max-heap of open nodes ordered by parent bound
type nodeQueue []*node

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].bound > q[j].bound }
func (q nodeQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(*node)) }

func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

// next pops open nodes until one may still beat the incumbent
func (q *nodeQueue) next(inc *incumbent) *node {
	for q.Len() > 0 {
		n := heap.Pop(q).(*node)
		if inc.improves(n.bound) {
			return n
		}
	}
	return nil
}

// Solve runs branch-and-bound on m. Exceeding the timeout yields StatusTimedOut
// and exceeding the node cap yields StatusNotSolved; neither is an error.
// Cancellation of ctx by the caller is returned as an error.
func (s *BranchAndBound) Solve(ctx context.Context, m *Model) (*Solution, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	finish := func(sol *Solution) (*Solution, error) {
		sol.Duration = time.Since(start)
		return sol, nil
	}

	relax, err := newRelaxation(m, s.opts.PivotTol)
	if errors.Is(err, errTrivialInfeasible) {
		return finish(&Solution{Status: StatusInfeasible})
	}
	if err != nil {
		return nil, err
	}

	n := len(m.Vars)
	root := &node{lower: make([]float64, n), upper: make([]float64, n), bound: math.Inf(1)}
	for i, v := range m.Vars {
		root.lower[i] = float64(v.Lower)
		root.upper[i] = float64(v.Upper)
	}

	var (
		inc   = newIncumbent(m)
		queue nodeQueue
		nodes int
		cur   = root
	)

	for {
		if cur == nil {
			if cur = queue.next(inc); cur == nil {
				break
			}
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return finish(&Solution{Status: StatusTimedOut, Nodes: nodes})
			}
			return nil, err
		}
		if nodes >= s.opts.MaxNodes {
			return finish(&Solution{Status: StatusNotSolved, Nodes: nodes})
		}

		nd := cur
		cur = nil
		nodes++

		bound, x, err := relax.solve(nd.lower, nd.upper, nd.from)
		if err != nil {
			switch {
			case errors.Is(err, errInfeasible):
				continue
			case errors.Is(err, errUnbounded):
				if nodes == 1 {
					return finish(&Solution{Status: StatusUnbounded, Nodes: nodes})
				}
				continue
			default:
				// Numerical breakdown. At the root nothing is known about the
				// problem; deeper nodes are pruned and the incumbent is still
				// checked against every constraint before it is reported.
				if nodes == 1 {
					return finish(&Solution{Status: StatusUndefined, Nodes: nodes})
				}
				continue
			}
		}
		if !inc.improves(bound) {
			continue
		}

		j := branchVar(m, x)
		if j < 0 {
			inc.offer(roundAll(x))
			continue
		}
		inc.round(x)
		if !inc.improves(bound) {
			continue
		}

		lower, upper := nd.lower, nd.upper
		if inc.found() {
			lower, upper = clone(lower), clone(upper)
			relax.fix(lower, upper, inc.gap(bound))
		}
		from := relax.snapshot()
		down := &node{lower: lower, upper: clone(upper), from: from, bound: bound}
		down.upper[j] = math.Floor(x[j])
		up := &node{lower: clone(lower), upper: upper, from: from, bound: bound}
		up.lower[j] = math.Ceil(x[j])

		// Dive upward and queue the other side.
		cur = up
		heap.Push(&queue, down)
	}

	if !inc.found() {
		return finish(&Solution{Status: StatusInfeasible, Nodes: nodes})
	}
	return finish(&Solution{Status: StatusOptimal, Objective: inc.value, Values: inc.values, Nodes: nodes})
}

// branchVar picks the fractional variable with the largest objective weight,
// preferring the most fractional on ties. It returns -1 when x is integral
// within feasTol.
func branchVar(m *Model, x []float64) int {
	idx, weight, frac := -1, 0.0, 0.0
	for i, v := range x {
		f := math.Abs(v - math.Round(v))
		if f <= feasTol {
			continue
		}
		w := math.Abs(m.Objective[i])
		if idx < 0 || w > weight || (w == weight && f > frac) {
			idx, weight, frac = i, w, f
		}
	}
	return idx
}

func roundAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Round(v)
	}
	return out
}

func clone(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}
