// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package similarity

import (
	"fmt"
	"math"

	"github.com/gorse-io/neighbors/dataset"
	"golang.org/x/exp/constraints"
)

// forIntersection calls f for every item rated in both vectors. It iterates the smaller
// vector and looks up each item in the larger one; a and b are passed to f in their original order.
func forIntersection[I constraints.Ordered](a, b dataset.Ratings[I], f func(x, y float64)) {
	if len(a) <= len(b) {
		for itemId, x := range a {
			if y, ok := b[itemId]; ok {
				f(x, y)
			}
		}
	} else {
		for itemId, y := range b {
			if x, ok := a[itemId]; ok {
				f(x, y)
			}
		}
	}
}

func countIntersection[I constraints.Ordered](a, b dataset.Ratings[I]) int {
	n := 0
	forIntersection(a, b, func(_, _ float64) {
		n++
	})
	return n
}

// IsDefined reports whether a score can be ranked. NaN and infinities cannot.
func IsDefined(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0)
}

// MinkowskiDistance computes (Σ|a-b|^grade)^(1/grade) over commonly rated items.
// The distance is undefined (NaN) if no item is rated by both.
func MinkowskiDistance[I constraints.Ordered](a, b dataset.Ratings[I], grade int) float64 {
	sum, maxDiff, n := 0.0, 0.0, 0
	forIntersection(a, b, func(x, y float64) {
		diff := math.Abs(x - y)
		maxDiff = math.Max(maxDiff, diff)
		switch grade {
		case 1:
			sum += diff
		case 2:
			sum += diff * diff
		default:
			sum += math.Pow(diff, float64(grade))
		}
		n++
	})
	if n == 0 {
		return math.NaN()
	}
	switch grade {
	case 1:
		return sum
	case 2:
		return math.Sqrt(sum)
	}
	if math.IsInf(sum, 1) || (sum == 0 && maxDiff > 0) {
		return scaledMinkowskiDistance(a, b, grade, maxDiff)
	}
	return math.Pow(sum, 1/float64(grade))
}

// scaledMinkowskiDistance computes maxDiff·(Σ(|a-b|/maxDiff)^grade)^(1/grade), which stays
// finite for grades where the plain sum overflows or underflows.
func scaledMinkowskiDistance[I constraints.Ordered](a, b dataset.Ratings[I], grade int, maxDiff float64) float64 {
	sum := 0.0
	forIntersection(a, b, func(x, y float64) {
		sum += math.Pow(math.Abs(x-y)/maxDiff, float64(grade))
	})
	return maxDiff * math.Pow(sum, 1/float64(grade))
}

func ManhattanDistance[I constraints.Ordered](a, b dataset.Ratings[I]) float64 {
	return MinkowskiDistance(a, b, 1)
}

func EuclideanDistance[I constraints.Ordered](a, b dataset.Ratings[I]) float64 {
	return MinkowskiDistance(a, b, 2)
}

// PearsonCorrelation computes the sample correlation over commonly rated items.
// The result is NaN if either side has no variance on the intersection.
func PearsonCorrelation[I constraints.Ordered](a, b dataset.Ratings[I]) float64 {
	var sumXY, sumX, sumY, sumX2, sumY2, n float64
	forIntersection(a, b, func(x, y float64) {
		sumXY += x * y
		sumX += x
		sumY += y
		sumX2 += x * x
		sumY2 += y * y
		n++
	})
	if n == 0 {
		return math.NaN()
	}
	numerator := sumXY - sumX*sumY/n
	varX := sumX2 - sumX*sumX/n
	varY := sumY2 - sumY*sumY/n
	// rounding may leave a tiny residue where the variance is zero
	if varX <= 1e-12*math.Max(sumX2, 1) || varY <= 1e-12*math.Max(sumY2, 1) {
		return math.NaN()
	}
	return numerator / (math.Sqrt(varX) * math.Sqrt(varY))
}

// CosineSimilarity divides the dot product by the norms, all restricted to commonly rated items.
func CosineSimilarity[I constraints.Ordered](a, b dataset.Ratings[I]) float64 {
	m, n, l := .0, .0, .0
	forIntersection(a, b, func(x, y float64) {
		m += x * x
		n += y * y
		l += x * y
	})
	return l / (math.Sqrt(m) * math.Sqrt(n))
}

// JaccardIndexSimilarity computes |a∩b| / |a∪b| over rated item sets.
func JaccardIndexSimilarity[I constraints.Ordered](a, b dataset.Ratings[I]) float64 {
	intersection := countIntersection(a, b)
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func JaccardDistanceScore[I constraints.Ordered](a, b dataset.Ratings[I]) float64 {
	return 1 - JaccardIndexSimilarity(a, b)
}

// Score dispatches to the function selected by metric. The metric must be valid.
func Score[I constraints.Ordered](metric Metric, a, b dataset.Ratings[I]) float64 {
	switch metric.Kind {
	case Manhattan:
		return ManhattanDistance(a, b)
	case Euclidean:
		return EuclideanDistance(a, b)
	case Minkowski:
		return MinkowskiDistance(a, b, metric.Grade)
	case Pearson:
		return PearsonCorrelation(a, b)
	case Cosine:
		return CosineSimilarity(a, b)
	case JaccardDistance:
		return JaccardDistanceScore(a, b)
	case JaccardIndex:
		return JaccardIndexSimilarity(a, b)
	default:
		panic(fmt.Sprintf("unknown metric kind %d", metric.Kind))
	}
}
