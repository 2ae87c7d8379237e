package nonparametric

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// exactSignTestLimit is the largest n for which the sign test uses the binomial distribution
const exactSignTestLimit = 25

// normalTwoTailed returns 2·(1 − Φ(|z|))
func normalTwoTailed(z float64) float64 {
	if math.IsNaN(z) {
		return 1.0
	}
	return clampProbability(2 * (1 - distuv.UnitNormal.CDF(math.Abs(z))))
}

// chiSquareUpperTail returns P(χ²_df ≥ statistic)
func chiSquareUpperTail(statistic float64, df int) float64 {
	if df <= 0 {
		return 1.0
	}
	chiDist := distuv.ChiSquared{K: float64(df)}
	return clampProbability(1 - chiDist.CDF(statistic))
}

// binomialTwoTailed returns the exact two-tailed p-value of observing k or fewer
// successes out of n trials with p = 0.5
func binomialTwoTailed(k, n int) float64 {
	if n <= 0 {
		return 1.0
	}
	binom := distuv.Binomial{N: float64(n), P: 0.5}
	return clampProbability(2 * binom.CDF(float64(k)))
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
