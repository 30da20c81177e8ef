package geo

import "gonum.org/v1/gonum/mat"

// smoothPolyOrder is the polynomial order used by the speed-signal smoother,
// matching the corner/brake/accel extractors' expectation of a quadratic
// local fit.
const smoothPolyOrder = 2

// smoothWindow is the target Savitzky-Golay window length. Shorter series
// use a smaller (odd) window; series too short for a quadratic fit pass
// through unchanged.
const smoothWindow = 11

// Smooth applies a Savitzky-Golay-style quadratic smoothing filter to a
// speed series. The window is min(11, len(values)); values shorter than
// that window (or too short to fit a degree-2 polynomial) are returned
// unchanged. Edge points use a polynomial fit over whatever window fits
// within bounds, evaluated at the point itself, rather than a fixed
// symmetric convolution kernel.
func Smooth(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	copy(out, values)
	if n == 0 {
		return out
	}

	window := smoothWindow
	if n < window {
		window = n
	}
	if window%2 == 0 {
		window--
	}
	if window <= smoothPolyOrder {
		return out
	}

	half := window / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + half
		if lo < 0 {
			hi -= lo
			lo = 0
		}
		if hi > n-1 {
			lo -= hi - (n - 1)
			hi = n - 1
		}
		if lo < 0 {
			lo = 0
		}
		out[i] = fitQuadraticAt(values[lo:hi+1], i-lo)
	}
	return out
}

// fitQuadraticAt fits a degree-2 polynomial through window by least squares
// and evaluates it at the given index within window.
func fitQuadraticAt(window []float64, at int) float64 {
	n := len(window)
	if n <= smoothPolyOrder {
		return window[at]
	}

	a := mat.NewDense(n, smoothPolyOrder+1, nil)
	y := mat.NewVecDense(n, window)
	for i := 0; i < n; i++ {
		x := float64(i)
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
		a.Set(i, 2, x*x)
	}

	var qr mat.QR
	qr.Factorize(a)

	var coeffs mat.VecDense
	if err := qr.SolveVecTo(&coeffs, false, y); err != nil {
		return window[at]
	}

	x := float64(at)
	return coeffs.AtVec(0) + coeffs.AtVec(1)*x + coeffs.AtVec(2)*x*x
}
