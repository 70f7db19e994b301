package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// errTrivialInfeasible marks a constraint with no terms that cannot hold
	errTrivialInfeasible = errors.New("solver: empty constraint cannot be satisfied")
	errInfeasible        = errors.New("solver: relaxation is infeasible")
	errUnbounded         = errors.New("solver: relaxation is unbounded")
	// errStalled covers an exhausted iteration budget and a basis that cannot
	// be refactored.
	errStalled = errors.New("solver: simplex stalled")
)

const (
	// reduced costs within dualTol of zero do not price a column in
	dualTol = 1e-9
	// consecutive degenerate pivots before entering columns are picked by index
	blandAfter = 50
	// largest basis condition number accepted when refactoring
	maxCond = 1e12
)

// basis records the basic columns, and which nonbasic columns sat at their
// upper bound, when a relaxation finished.
type basis struct {
	head  []int
	upper []bool
}

// relaxation is the continuous version of a model in bounded standard form
//
//	A_c x + S s + R r = b,  lower <= x <= upper,  s >= 0,  r = 0
//
// where S carries +1 for <= rows and -1 for >= rows and R holds one artificial
// column per row. The matrix is built once; nodes only change column bounds.
// The tableau survives between calls so a child node continues from the basis
// its parent finished with.
type relaxation struct {
	model *Model
	rows  int
	cols  int
	art   int // first artificial column
	a     *mat.Dense
	b     []float64
	cost  []float64
	lo    []float64
	hi    []float64
	tol   float64

	t     *mat.Dense // B^-1 A
	beta  []float64  // basic values by tableau row
	d     []float64  // reduced costs
	head  []int      // basic column of each tableau row
	pos   []int      // tableau row of a basic column, -1 when nonbasic
	x     []float64  // nonbasic column values
	upper []bool     // nonbasic column rests at its upper bound
	last  *basis     // snapshot describing the current tableau
}

func newRelaxation(m *Model, tol float64) (*relaxation, error) {
	var rows []*Constraint
	slacks := 0
	for i := range m.Constraints {
		c := &m.Constraints[i]
		if len(c.Terms) == 0 {
			if !c.Sense.holds(0, c.RHS, feasTol) {
				return nil, errTrivialInfeasible
			}
			continue
		}
		rows = append(rows, c)
		if c.Sense != Equal {
			slacks++
		}
	}

	n := len(m.Vars)
	r := &relaxation{model: m, rows: len(rows), art: n + slacks, tol: tol}
	r.cols = r.art + r.rows
	r.cost = make([]float64, r.cols)
	copy(r.cost, m.Objective)
	r.lo = make([]float64, r.cols)
	r.hi = make([]float64, r.cols)
	for j := n; j < r.art; j++ {
		r.hi[j] = math.Inf(1)
	}
	r.d = make([]float64, r.cols)
	r.pos = make([]int, r.cols)
	r.x = make([]float64, r.cols)
	r.upper = make([]bool, r.cols)
	if r.rows == 0 {
		return r, nil
	}

	r.a = mat.NewDense(r.rows, r.cols, nil)
	r.t = mat.NewDense(r.rows, r.cols, nil)
	r.b = make([]float64, r.rows)
	r.beta = make([]float64, r.rows)
	r.head = make([]int, r.rows)
	s := n
	for i, c := range rows {
		for _, term := range c.Terms {
			r.a.Set(i, term.Var, r.a.At(i, term.Var)+term.Coef)
		}
		switch c.Sense {
		case LessEq:
			r.a.Set(i, s, 1)
			s++
		case GreaterEq:
			r.a.Set(i, s, -1)
			s++
		}
		r.a.Set(i, r.art+i, 1)
		r.b[i] = c.RHS
	}
	return r, nil
}

// solve maximizes the objective over lower <= x <= upper. With a basis from a
// parent node the tableau is rebuilt from it (or reused when it is still
// current) and repaired with dual simplex pivots. Without one, or when the
// warm start breaks down, both primal phases run from the artificial basis.
func (r *relaxation) solve(lower, upper []float64, from *basis) (float64, []float64, error) {
	inPlace := from != nil && from == r.last
	r.last = nil
	copy(r.lo, lower)
	copy(r.hi, upper)
	if r.rows == 0 {
		return r.free()
	}

	if from != nil {
		err := r.warm(from, inPlace)
		if err == nil {
			x := r.values()
			return r.model.ObjectiveValue(x), x, nil
		}
		if errors.Is(err, errInfeasible) {
			return 0, nil, err
		}
	}
	if err := r.cold(); err != nil {
		return 0, nil, err
	}
	x := r.values()
	return r.model.ObjectiveValue(x), x, nil
}

// free solves a relaxation without rows: every column sits at the bound its
// objective coefficient prefers.
func (r *relaxation) free() (float64, []float64, error) {
	x := make([]float64, len(r.model.Vars))
	for j, c := range r.model.Objective {
		x[j] = r.lo[j]
		if c > 0 {
			x[j] = r.hi[j]
		}
	}
	return r.model.ObjectiveValue(x), x, nil
}

func (r *relaxation) warm(from *basis, inPlace bool) error {
	if inPlace {
		for j := 0; j < r.cols; j++ {
			if r.pos[j] < 0 {
				r.move(j, r.bound(j))
			}
		}
	} else if err := r.refactor(from); err != nil {
		return err
	}

	// Bound changes can leave a nonbasic column priced in; flipping it to the
	// other bound restores dual feasibility when that bound is finite.
	for j := 0; j < r.cols; j++ {
		if r.pos[j] >= 0 || r.hi[j] <= r.lo[j] {
			continue
		}
		switch {
		case !r.upper[j] && r.d[j] > dualTol:
			if math.IsInf(r.hi[j], 1) {
				return errStalled
			}
			r.upper[j] = true
			r.move(j, r.hi[j])
		case r.upper[j] && r.d[j] < -dualTol:
			r.upper[j] = false
			r.move(j, r.lo[j])
		}
	}
	if err := r.dual(); err != nil {
		return err
	}
	return r.primal()
}

// refactor rebuilds the tableau for the basic columns in from using an LU
// factorization of the basis matrix.
func (r *relaxation) refactor(from *basis) error {
	B := mat.NewDense(r.rows, r.rows, nil)
	for k, q := range from.head {
		for i := 0; i < r.rows; i++ {
			B.Set(i, k, r.a.At(i, q))
		}
	}
	var lu mat.LU
	lu.Factorize(B)
	if lu.Cond() > maxCond {
		return errStalled
	}
	if err := lu.SolveTo(r.t, false, r.a); err != nil {
		return errStalled
	}
	var rhs mat.VecDense
	if err := lu.SolveVecTo(&rhs, false, mat.NewVecDense(r.rows, r.b)); err != nil {
		return errStalled
	}

	copy(r.head, from.head)
	copy(r.upper, from.upper)
	for j := range r.pos {
		r.pos[j] = -1
	}
	for i, q := range r.head {
		r.pos[q] = i
		r.beta[i] = rhs.AtVec(i)
	}
	for j := 0; j < r.cols; j++ {
		if r.pos[j] >= 0 {
			continue
		}
		r.x[j] = r.bound(j)
		if v := r.x[j]; v != 0 {
			for i := 0; i < r.rows; i++ {
				r.beta[i] -= r.t.At(i, j) * v
			}
		}
	}
	r.price(r.cost)
	return nil
}

// cold runs phase one from the artificial basis, then phase two
func (r *relaxation) cold() error {
	for j := 0; j < r.art; j++ {
		r.x[j] = r.lo[j]
		r.upper[j] = false
	}
	for i := 0; i < r.rows; i++ {
		row := r.a.RawRowView(i)
		residual := r.b[i]
		for j := 0; j < r.art; j++ {
			residual -= row[j] * r.x[j]
		}
		sign := 1.0
		if residual < 0 {
			sign = -1
		}
		row[r.art+i] = sign
		r.beta[i] = sign * residual
	}
	r.t.Copy(r.a)
	for i := 0; i < r.rows; i++ {
		if r.a.At(i, r.art+i) < 0 {
			floats.Scale(-1, r.t.RawRowView(i))
		}
	}
	for j := range r.pos {
		r.pos[j] = -1
	}
	for i := range r.head {
		r.head[i] = r.art + i
		r.pos[r.art+i] = i
	}

	phaseOne := make([]float64, r.cols)
	for j := r.art; j < r.cols; j++ {
		phaseOne[j] = -1
		r.hi[j] = math.Inf(1)
	}
	r.price(phaseOne)
	err := r.primal()
	for j := r.art; j < r.cols; j++ {
		r.hi[j] = 0
	}
	if err != nil {
		return err
	}

	infeasibility := 0.0
	for i, q := range r.head {
		if q >= r.art {
			infeasibility += r.beta[i]
		}
	}
	for j := r.art; j < r.cols; j++ {
		if r.pos[j] < 0 {
			infeasibility += r.x[j]
			r.x[j], r.upper[j] = 0, false
		}
	}
	if infeasibility > feasTol {
		return errInfeasible
	}

	r.price(r.cost)
	return r.primal()
}

// primal pivots until no nonbasic column improves the objective. The basis
// must be primal feasible on entry.
func (r *relaxation) primal() error {
	degenerate := 0
	for it := 0; it < r.maxIters(); it++ {
		bland := degenerate > blandAfter
		q := r.entering(bland)
		if q < 0 {
			return nil
		}
		dir := 1.0
		if r.upper[q] {
			dir = -1
		}

		step := r.hi[q] - r.lo[q]
		leave, toUpper, pivot := -1, false, 0.0
		for i := 0; i < r.rows; i++ {
			alpha := r.t.At(i, q) * dir
			k := r.head[i]
			var limit float64
			up := false
			switch {
			case alpha > r.tol:
				limit = (r.beta[i] - r.lo[k]) / alpha
			case alpha < -r.tol && !math.IsInf(r.hi[k], 1):
				limit, up = (r.hi[k]-r.beta[i])/-alpha, true
			default:
				continue
			}
			if limit < 0 {
				limit = 0
			}
			tie := limit == step && leave >= 0
			if limit < step ||
				(tie && !bland && math.Abs(alpha) > pivot) ||
				(tie && bland && k < r.head[leave]) {
				step, leave, toUpper, pivot = limit, i, up, math.Abs(alpha)
			}
		}
		if math.IsInf(step, 1) {
			return errUnbounded
		}
		if step < 1e-12 {
			degenerate++
		} else {
			degenerate = 0
		}

		for i := 0; i < r.rows; i++ {
			r.beta[i] -= r.t.At(i, q) * dir * step
		}
		if leave < 0 {
			r.upper[q] = !r.upper[q]
			r.x[q] = r.bound(q)
			continue
		}
		value := r.x[q] + dir*step
		k := r.head[leave]
		r.upper[k] = toUpper
		r.x[k] = r.bound(k)
		r.pivot(leave, q)
		r.beta[leave] = value
	}
	return errStalled
}

// entering picks the nonbasic column with the largest objective gain per
// unit, or the lowest-indexed improving column when bland is set.
func (r *relaxation) entering(bland bool) int {
	q, best := -1, dualTol
	for j := 0; j < r.cols; j++ {
		if r.pos[j] >= 0 || r.hi[j] <= r.lo[j] {
			continue
		}
		gain := r.d[j]
		if r.upper[j] {
			gain = -gain
		}
		if gain > best {
			if bland {
				return j
			}
			q, best = j, gain
		}
	}
	return q
}

// dual pivots until every basic value lies within its bounds. The reduced
// costs must be dual feasible on entry and stay so.
func (r *relaxation) dual() error {
	for it := 0; it < r.maxIters(); it++ {
		leave, target, worst := -1, 0.0, feasTol
		for i, k := range r.head {
			if v := r.lo[k] - r.beta[i]; v > worst {
				leave, target, worst = i, r.lo[k], v
			}
			if v := r.beta[i] - r.hi[k]; v > worst {
				leave, target, worst = i, r.hi[k], v
			}
		}
		if leave < 0 {
			return nil
		}

		raise := r.beta[leave] < target
		row := r.t.RawRowView(leave)
		q, ratio, pivot := -1, math.Inf(1), 0.0
		for j := 0; j < r.cols; j++ {
			if r.pos[j] >= 0 || r.hi[j] <= r.lo[j] {
				continue
			}
			// a < 0 when moving j off its bound raises the leaving value
			a := row[j]
			if r.upper[j] {
				a = -a
			}
			if (raise && a > -r.tol) || (!raise && a < r.tol) {
				continue
			}
			size := math.Abs(a)
			rt := math.Abs(r.d[j]) / size
			if rt < ratio-1e-12 || (rt <= ratio+1e-12 && size > pivot) {
				q, ratio, pivot = j, rt, size
			}
		}
		if q < 0 {
			return errInfeasible
		}

		delta := (r.beta[leave] - target) / row[q]
		for i := 0; i < r.rows; i++ {
			r.beta[i] -= r.t.At(i, q) * delta
		}
		value := r.x[q] + delta
		k := r.head[leave]
		r.upper[k] = !raise
		r.x[k] = target
		r.pivot(leave, q)
		r.beta[leave] = value
	}
	return errStalled
}

// pivot makes column q basic in tableau row leave
func (r *relaxation) pivot(leave, q int) {
	pr := r.t.RawRowView(leave)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < r.rows; i++ {
		if i == leave {
			continue
		}
		ri := r.t.RawRowView(i)
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[q] = 0
		}
	}
	if f := r.d[q]; f != 0 {
		floats.AddScaled(r.d, -f, pr)
		r.d[q] = 0
	}
	r.pos[r.head[leave]] = -1
	r.head[leave] = q
	r.pos[q] = leave
}

// price recomputes reduced costs for cost against the current basis
func (r *relaxation) price(cost []float64) {
	copy(r.d, cost)
	for i, q := range r.head {
		if c := cost[q]; c != 0 {
			floats.AddScaled(r.d, -c, r.t.RawRowView(i))
		}
	}
}

// move sets nonbasic column j to v and shifts the basic values to match
func (r *relaxation) move(j int, v float64) {
	if delta := v - r.x[j]; delta != 0 {
		for i := 0; i < r.rows; i++ {
			r.beta[i] -= r.t.At(i, j) * delta
		}
	}
	r.x[j] = v
}

func (r *relaxation) bound(j int) float64 {
	if r.upper[j] {
		return r.hi[j]
	}
	return r.lo[j]
}

func (r *relaxation) maxIters() int {
	return 50 * (r.rows + r.cols)
}

// values returns the structural part of the current solution
func (r *relaxation) values() []float64 {
	x := make([]float64, len(r.model.Vars))
	copy(x, r.x)
	for i, q := range r.head {
		if q < len(x) {
			x[q] = r.beta[i]
		}
	}
	return x
}

// snapshot captures the current basis so child nodes can start from it
func (r *relaxation) snapshot() *basis {
	b := &basis{
		head:  append([]int(nil), r.head...),
		upper: append([]bool(nil), r.upper...),
	}
	r.last = b
	return b
}

// fix tightens node bounds using reduced costs of the optimal relaxation just
// solved: a nonbasic column whose every step off its bound costs more than gap
// cannot move that far in any solution worth finding below this node.
func (r *relaxation) fix(lower, upper []float64, gap float64) {
	if r.rows == 0 || gap < 0 {
		return
	}
	for j := range lower {
		if r.pos[j] >= 0 || upper[j] <= lower[j] {
			continue
		}
		switch {
		case !r.upper[j] && r.d[j] < -dualTol:
			if k := math.Floor((gap + gapTol) / -r.d[j]); lower[j]+k < upper[j] {
				upper[j] = lower[j] + k
			}
		case r.upper[j] && r.d[j] > dualTol:
			if k := math.Floor((gap + gapTol) / r.d[j]); upper[j]-k > lower[j] {
				lower[j] = upper[j] - k
			}
		}
	}
}
