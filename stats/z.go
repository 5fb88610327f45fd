package stats

import "gonum.org/v1/gonum/stat/distuv"

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	area := (1 + (confidenceInterval / 100)) / 2
	return dist.Quantile(area)
}

// Interval returns the symmetric confidence interval around mean for a
// normal belief with the given standard deviation.
func Interval(mean, stdev, confidenceInterval float64) (float64, float64) {
	z := ZVal(confidenceInterval)
	return mean - z*stdev, mean + z*stdev
}
