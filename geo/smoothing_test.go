package geo

import "testing"

func TestSmoothPassthroughShortSeries(t *testing.T) {
	values := []float64{10, 20, 30}
	out := Smooth(values)
	for i := range values {
		if out[i] != values[i] {
			t.Errorf("expected passthrough at %d: got %f want %f", i, out[i], values[i])
		}
	}
}

func TestSmoothPreservesLength(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i % 7)
	}
	out := Smooth(values)
	if len(out) != len(values) {
		t.Fatalf("expected length %d, got %d", len(values), len(out))
	}
}

func TestSmoothReducesNoise(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50
		if i%2 == 0 {
			values[i] += 5
		} else {
			values[i] -= 5
		}
	}
	out := Smooth(values)

	noisyVariance, smoothVariance := variance(values), variance(out)
	if smoothVariance >= noisyVariance {
		t.Errorf("expected smoothing to reduce variance: noisy=%f smooth=%f", noisyVariance, smoothVariance)
	}
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		sqDiff += (v - mean) * (v - mean)
	}
	return sqDiff / float64(len(values))
}
