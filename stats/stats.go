package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running statistic over a stream of observations.
// The mean is kept as a plain sum over a count so that a persisted
// statistic restores to exactly the same mean; the spread uses
// Welford's algorithm.
type Statistic struct {
	count int
	sum   float64

	// For Welford's algorithm:
	mean float64
	m2   float64
}

// Moments is the serializable state of a Statistic.
type Moments struct {
	Count int     `json:"count" yaml:"count"`
	Sum   float64 `json:"sum" yaml:"sum"`
	M2    float64 `json:"m2" yaml:"m2"`
}

// FromMoments rebuilds a statistic from persisted moments.
func FromMoments(m Moments) *Statistic {
	s := &Statistic{count: m.Count, sum: m.Sum, m2: m.M2}
	if m.Count > 0 {
		s.mean = m.Sum / float64(m.Count)
	}
	return s
}

func (s *Statistic) Push(val float64) {
	s.count++
	s.sum += val
	delta := val - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (val - s.mean)
}

func (s *Statistic) Mean() float64 {
	if s.count == 0 {
		return 0.0
	}
	return s.sum / float64(s.count)
}

func (s *Statistic) Variance() float64 {
	if s.count <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.count-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.count == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.count))
}

func (s *Statistic) Sum() float64 {
	return s.sum
}

func (s *Statistic) Count() int {
	return s.count
}

func (s *Statistic) Moments() Moments {
	return Moments{Count: s.count, Sum: s.sum, M2: s.m2}
}
