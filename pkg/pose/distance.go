package pose

import (
	"math"

	"github.com/teslashibe/go-posegame/pkg/landmark"
	"gonum.org/v1/gonum/stat"
)

// MeanSquaredDistance returns the mean of the per-point squared distances
// between a and b. It is NaN when the sets are empty or of different lengths.
func MeanSquaredDistance(a, b landmark.Set) float64 {
	if !a.Comparable(b) {
		return math.NaN()
	}
	d := make([]float64, len(a))
	for i := range a {
		d[i] = a[i].DistanceSquared(b[i])
	}
	return stat.Mean(d, nil)
}
