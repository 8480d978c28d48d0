// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import (
	"math"

	"github.com/pkg/errors"
)

// Weights are the (scaled) Poisson probabilities computed by FoxGlynn.
// Weights[k] is proportional to the probability of Left + k events, and the
// sum of all weights is TotalWeight. The probability mass outside of [Left,
// Right] is less than the accuracy requested.
type Weights struct {
	Left, Right int
	Weights     []float64
	TotalWeight float64
}

// Poisson returns the normalized weight of n, that is an approximation of
// the probability of n events.
func (w *Weights) Poisson(n int) float64 {
	if n < w.Left || n > w.Right {
		return 0
	}
	return w.Weights[n-w.Left] / w.TotalWeight
}

// FoxGlynn computes the truncation points and the weights of the Poisson
// distribution of parameter lambda, with an error less than accuracy, using
// the algorithm of Fox and Glynn (Computing Poisson probabilities, CACM
// 31(4), 1988). Weights are computed from the mode with scaled recurrences,
// so that they do not underflow for large values of lambda. For lambda == 0
// the result is the point mass in 0.
func FoxGlynn(lambda, accuracy float64) (*Weights, error) {
	if !(lambda >= 0) || math.IsInf(lambda, 0) {
		return nil, errors.Wrapf(ErrInvalidArgument, "Fox-Glynn with parameter %g", lambda)
	}
	if !(accuracy > 0 && accuracy < 1) {
		return nil, errors.Wrapf(ErrInvalidArgument, "Fox-Glynn with accuracy %g", accuracy)
	}
	if lambda == 0 {
		return &Weights{Left: 0, Right: 0, Weights: []float64{1}, TotalWeight: 1}, nil
	}
	left, right := finder(lambda, accuracy)
	mode := int(lambda)
	w, err := newvector(right - left + 1)
	if err != nil {
		return nil, err
	}
	w[mode-left] = math.MaxFloat64 / (1e10 * float64(right-left+1))
	for j := mode; j > left; j-- {
		w[j-1-left] = (float64(j) / lambda) * w[j-left]
	}
	for j := mode; j < right; j++ {
		w[j+1-left] = (lambda / float64(j+1)) * w[j-left]
	}
	// trim the tails that underflowed
	lo, hi := 0, len(w)-1
	for lo < mode-left && w[lo] == 0 {
		lo++
	}
	for hi > mode-left && w[hi] == 0 {
		hi--
	}
	res := &Weights{Left: left + lo, Right: left + hi, Weights: w[lo : hi+1]}
	// add small values first
	i, k := 0, len(res.Weights)-1
	for i < k {
		if res.Weights[i] <= res.Weights[k] {
			res.TotalWeight += res.Weights[i]
			i++
		} else {
			res.TotalWeight += res.Weights[k]
			k--
		}
	}
	res.TotalWeight += res.Weights[i]
	return res, nil
}

// finder returns the left and right truncation points for the Poisson
// distribution of parameter lambda > 0.
func finder(lambda, accuracy float64) (int, int) {
	sqrt2pi := math.Sqrt(2 * math.Pi)
	mode := math.Floor(lambda)
	left := 0
	if lambda >= 25 {
		b := (1 + 1/lambda) * math.Exp(1/(8*lambda))
		k := 3.0
		for b*math.Exp(-k*k/2)/(k*sqrt2pi) >= accuracy/2 {
			k++
		}
		left = int(math.Max(0, math.Floor(mode-k*math.Sqrt(lambda)-1.5)))
	}
	lmax, mmax := lambda, mode
	if lambda < 400 {
		lmax, mmax = 400, 400
	}
	a := (1 + 1/lmax) * math.Exp(1.0/16) * math.Sqrt2
	k := 3.0
	for {
		d := 1 / (1 - math.Exp(-(2.0/9)*(k*math.Sqrt(2*lmax)+1.5)))
		if a*d*math.Exp(-k*k/2)/(k*sqrt2pi) < accuracy/2 {
			break
		}
		k++
	}
	right := int(math.Ceil(mmax + k*math.Sqrt(2*lmax) + 1.5))
	return left, right
}
