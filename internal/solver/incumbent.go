package solver

import "math"

// maxRoundedVars caps how many fractional entries round tries in both directions
const maxRoundedVars = 6

// entry is one coefficient of a variable's column: the constraint it appears
// in and its weight there.
type entry struct {
	row  int
	coef float64
}

// incumbent tracks the best integer point found so far
type incumbent struct {
	model  *Model
	values []float64
	value  float64
	// margin is how far a bound must exceed value before a subtree can hold
	// a better point
	margin float64
	cols   [][]entry
}

func newIncumbent(m *Model) *incumbent {
	inc := &incumbent{
		model:  m,
		value:  math.Inf(-1),
		margin: gapTol,
		cols:   make([][]entry, len(m.Vars)),
	}
	if step := objectiveStep(m.Objective); step > 0 {
		inc.margin = math.Max(step-feasTol, gapTol)
	}
	for ci, c := range m.Constraints {
		for _, t := range c.Terms {
			inc.cols[t.Var] = append(inc.cols[t.Var], entry{row: ci, coef: t.Coef})
		}
	}
	return inc
}

func (inc *incumbent) found() bool {
	return inc.values != nil
}

// improves reports whether a subtree whose relaxation reaches bound may hold
// a point better than the incumbent
func (inc *incumbent) improves(bound float64) bool {
	return bound > inc.value+inc.margin
}

// gap is how much objective a subtree bounded by bound can give up before it
// stops being worth exploring
func (inc *incumbent) gap(bound float64) float64 {
	return bound - inc.value - inc.margin
}

// offer keeps x when it is feasible and better than the incumbent
func (inc *incumbent) offer(x []float64) bool {
	if !inc.model.Feasible(x, feasTol) {
		return false
	}
	v := inc.model.ObjectiveValue(x)
	if v <= inc.value {
		return false
	}
	inc.values, inc.value = x, v
	return true
}

// round looks for an integer point near the relaxation solution x. When few
// entries are fractional every floor/ceil combination is scored against the
// constraints; otherwise x is rounded to the nearest integers.
func (inc *incumbent) round(x []float64) {
	point := make([]float64, len(x))
	var frac []int
	for i, v := range x {
		if r := math.Round(v); math.Abs(v-r) <= feasTol {
			point[i] = r
			continue
		}
		point[i] = math.Floor(v)
		frac = append(frac, i)
	}
	if len(frac) > maxRoundedVars {
		for _, i := range frac {
			point[i] = math.Round(x[i])
		}
		inc.offer(point)
		return
	}

	base := make([]float64, len(inc.model.Constraints))
	for ci := range inc.model.Constraints {
		base[ci] = inc.model.Constraints[ci].eval(point)
	}
	baseValue := inc.model.ObjectiveValue(point)

	act := make([]float64, len(base))
	bestMask, bestValue := -1, inc.value
	for mask := 0; mask < 1<<len(frac); mask++ {
		copy(act, base)
		v := baseValue
		for bit, i := range frac {
			if mask&(1<<bit) == 0 {
				continue
			}
			v += inc.model.Objective[i]
			for _, e := range inc.cols[i] {
				act[e.row] += e.coef
			}
		}
		if v <= bestValue || !inc.rowsHold(act) {
			continue
		}
		bestMask, bestValue = mask, v
	}
	if bestMask < 0 {
		return
	}
	for bit, i := range frac {
		if bestMask&(1<<bit) != 0 {
			point[i]++
		}
	}
	inc.offer(point)
}

func (inc *incumbent) rowsHold(act []float64) bool {
	for ci := range inc.model.Constraints {
		c := &inc.model.Constraints[ci]
		if !c.Sense.holds(act[ci], c.RHS, feasTol) {
			return false
		}
	}
	return true
}

// objectiveStep returns the spacing between objective values at integer points
// when every coefficient is a multiple of a common decimal step, or 0 when
// there is no such step.
func objectiveStep(objective []float64) float64 {
	for _, scale := range []float64{1, 10, 100, 1000} {
		var g int64
		ok := true
		for _, c := range objective {
			v := c * scale
			r := math.Round(v)
			if math.Abs(v-r) > 1e-9*math.Max(1, math.Abs(v)) || math.Abs(r) > 1e12 {
				ok = false
				break
			}
			g = gcd(g, int64(math.Abs(r)))
		}
		if ok {
			if g == 0 {
				return 0
			}
			return float64(g) / scale
		}
	}
	return 0
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
