package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Method identifies a correlation method. It is a stable identifier and is
// never derived from a translated label.
type Method int

const (
	Pearson Method = iota
	Spearman
)

type methodSpec struct {
	id      string
	name    string
	compute func(x, y []float64) float64
}

var methods = map[Method]methodSpec{
	Pearson:  {id: "pearson", name: "Pearson", compute: pearson},
	Spearman: {id: "spearman", name: "Spearman", compute: spearman},
}

// Methods lists the supported methods in display order.
func Methods() []Method { return []Method{Pearson, Spearman} }

// ParseMethod maps a stable identifier ("pearson", "spearman") to a Method.
func ParseMethod(id string) (Method, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for m, spec := range methods {
		if spec.id == id {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, id)
}

// ID returns the stable identifier used in forms, flags and JSON.
func (m Method) ID() string {
	if spec, ok := methods[m]; ok {
		return spec.id
	}
	return "unknown"
}

// String returns the canonical, untranslated method name.
func (m Method) String() string {
	if spec, ok := methods[m]; ok {
		return spec.name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Direction is the sign of a coefficient.
type Direction string

// Strength buckets |r|.
type Strength string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"

	Weak     Strength = "weak"
	Moderate Strength = "moderate"
	Strong   Strength = "strong"
)

// Strength thresholds; each boundary belongs to the stronger bucket.
const (
	ModerateThreshold = 0.3
	StrongThreshold   = 0.7
)

// CorrelationResult is the outcome of one calculate action.
type CorrelationResult struct {
	Method    Method
	R         float64
	P         float64
	N         int
	Direction Direction
	Strength  Strength
}

// Classify derives direction and strength from r.
func Classify(r float64) (Direction, Strength) {
	dir := Positive
	if r < 0 {
		dir = Negative
	}
	a := math.Abs(r)
	switch {
	case a < ModerateThreshold:
		return dir, Weak
	case a < StrongThreshold:
		return dir, Moderate
	default:
		return dir, Strong
	}
}

// Correlate computes the coefficient and two-sided p-value of x and y.
// Rows where either value is missing are dropped pairwise first.
func Correlate(x, y []float64, m Method) (*CorrelationResult, error) {
	spec, ok := methods[m]
	if !ok {
		return nil, &ComputationError{Method: m, Err: ErrUnknownMethod}
	}
	if len(x) != len(y) {
		return nil, &ComputationError{Method: m, Err: fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))}
	}
	xs, ys := CompletePairs(x, y)
	n := len(xs)
	if n < 2 {
		return nil, &ComputationError{Method: m, Err: fmt.Errorf("%w: %d", ErrTooFewPairs, n)}
	}
	if isConstant(xs) || isConstant(ys) {
		return nil, &ComputationError{Method: m, Err: ErrConstantColumn}
	}
	r := spec.compute(xs, ys)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, &ComputationError{Method: m, Err: fmt.Errorf("undefined coefficient")}
	}
	r = math.Max(-1, math.Min(1, r))
	dir, str := Classify(r)
	return &CorrelationResult{
		Method:    m,
		R:         r,
		P:         twoSidedP(r, n),
		N:         n,
		Direction: dir,
		Strength:  str,
	}, nil
}

// CompletePairs keeps only rows where both x[i] and y[i] are finite.
// x and y must have the same length.
func CompletePairs(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func isConstant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

func pearson(x, y []float64) float64 {
	return stat.Correlation(x, y, nil)
}

func spearman(x, y []float64) float64 {
	return stat.Correlation(ranks(x), ranks(y), nil)
}

// ranks assigns 1-based ranks, giving tied values the mean of their ranks.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	out := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i + 1
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}

// twoSidedP tests H0: no association with t = r·sqrt((n-2)/(1-r²)) on n-2
// degrees of freedom.
func twoSidedP(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := math.Abs(r) * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(t)
	return math.Max(0, math.Min(1, p))
}
