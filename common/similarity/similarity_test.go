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
	"math"
	"math/rand"
	"testing"

	"github.com/gorse-io/neighbors/dataset"
	"github.com/stretchr/testify/assert"
)

const delta = 1e-9

var allMetrics = []Metric{
	{Kind: Manhattan},
	{Kind: Euclidean},
	NewMinkowski(1),
	NewMinkowski(3),
	{Kind: Pearson},
	{Kind: Cosine},
	{Kind: JaccardDistance},
	{Kind: JaccardIndex},
}

func randomRatings(rng *rand.Rand, numItems int) dataset.Ratings[int] {
	ratings := make(dataset.Ratings[int])
	for i := 0; i < numItems; i++ {
		if rng.Intn(2) == 0 {
			ratings[i] = float64(rng.Intn(9)+1) / 2
		}
	}
	return ratings
}

func TestMinkowskiDistance(t *testing.T) {
	a := dataset.Ratings[string]{"I1": 5, "I2": 3, "I3": 1}
	b := dataset.Ratings[string]{"I1": 4, "I2": 1, "I4": 2}
	assert.Equal(t, 3.0, ManhattanDistance(a, b))
	assert.InDelta(t, math.Sqrt(5), EuclideanDistance(a, b), delta)
	assert.InDelta(t, math.Cbrt(9), MinkowskiDistance(a, b, 3), delta)
	// nothing in common
	assert.True(t, math.IsNaN(EuclideanDistance(a, dataset.Ratings[string]{"I5": 1})))
	assert.True(t, math.IsNaN(ManhattanDistance(a, dataset.Ratings[string]{})))
}

func TestMinkowskiDistance_LargeGrade(t *testing.T) {
	a := dataset.Ratings[string]{"a": 1, "b": 1}
	b := dataset.Ratings[string]{"a": 5, "b": 1}
	score := MinkowskiDistance(a, b, 600)
	assert.True(t, IsDefined(score))
	assert.InDelta(t, 4.0, score, delta)
	// equal ratings
	assert.Equal(t, 0.0, MinkowskiDistance(a, a, 600))
	// approaches the largest difference
	c := dataset.Ratings[string]{"a": 4, "b": 3}
	assert.InDelta(t, 3.0, MinkowskiDistance(a, c, 1000), delta)
	// tiny differences do not underflow to zero
	d := dataset.Ratings[string]{"a": 1 + 1e-3, "b": 1}
	assert.InDelta(t, 1e-3, MinkowskiDistance(a, d, 600), 1e-12)
}

func TestPearsonCorrelation(t *testing.T) {
	a := dataset.Ratings[int]{1: 1, 2: 2, 3: 3, 4: 4}
	b := dataset.Ratings[int]{1: 2, 2: 4, 3: 6, 4: 8, 5: 1}
	assert.InDelta(t, 1.0, PearsonCorrelation(a, b), delta)
	c := dataset.Ratings[int]{1: 4, 2: 3, 3: 2, 4: 1}
	assert.InDelta(t, -1.0, PearsonCorrelation(a, c), delta)
	d := dataset.Ratings[int]{1: 2, 2: 1, 3: 4, 4: 3}
	assert.InDelta(t, 0.6, PearsonCorrelation(a, d), delta)
	// identical constant vectors have no variance
	e := dataset.Ratings[int]{1: 3, 2: 3, 3: 3}
	assert.True(t, math.IsNaN(PearsonCorrelation(e, e)))
	assert.False(t, IsDefined(PearsonCorrelation(e, e)))
	// a single common item has no variance
	assert.True(t, math.IsNaN(PearsonCorrelation(dataset.Ratings[int]{1: 5}, dataset.Ratings[int]{1: 5, 2: 1})))
	// no common items
	assert.True(t, math.IsNaN(PearsonCorrelation(dataset.Ratings[int]{1: 5}, dataset.Ratings[int]{2: 5})))
}

func TestCosineSimilarity(t *testing.T) {
	a := dataset.Ratings[int]{1: 1, 2: 2, 3: 100}
	b := dataset.Ratings[int]{1: 2, 2: 4}
	// norms only include commonly rated items
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), delta)
	c := dataset.Ratings[int]{1: 2, 2: -1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, c), delta)
	assert.True(t, math.IsNaN(CosineSimilarity(a, dataset.Ratings[int]{4: 1})))
	assert.True(t, math.IsNaN(CosineSimilarity(dataset.Ratings[int]{1: 0}, dataset.Ratings[int]{1: 0})))
}

func TestJaccard(t *testing.T) {
	a := dataset.Ratings[int]{1: 1, 2: 2, 3: 3}
	b := dataset.Ratings[int]{2: 5, 3: 5, 4: 5, 5: 5}
	assert.InDelta(t, 2.0/5.0, JaccardIndexSimilarity(a, b), delta)
	assert.InDelta(t, 3.0/5.0, JaccardDistanceScore(a, b), delta)
	assert.Equal(t, 0.0, JaccardIndexSimilarity(a, dataset.Ratings[int]{}))
	assert.True(t, math.IsNaN(JaccardIndexSimilarity(dataset.Ratings[int]{}, dataset.Ratings[int]{})))
	assert.False(t, IsDefined(JaccardDistanceScore(dataset.Ratings[int]{}, dataset.Ratings[int]{})))
}

func TestIsDefined(t *testing.T) {
	assert.True(t, IsDefined(0))
	assert.True(t, IsDefined(-1.5))
	assert.False(t, IsDefined(math.NaN()))
	assert.False(t, IsDefined(math.Inf(1)))
	assert.False(t, IsDefined(math.Inf(-1)))
}

func TestScore(t *testing.T) {
	a := dataset.Ratings[int]{1: 5, 2: 3}
	b := dataset.Ratings[int]{1: 4, 2: 3}
	assert.Equal(t, ManhattanDistance(a, b), Score(Metric{Kind: Manhattan}, a, b))
	assert.Equal(t, EuclideanDistance(a, b), Score(Metric{Kind: Euclidean}, a, b))
	assert.Equal(t, MinkowskiDistance(a, b, 4), Score(NewMinkowski(4), a, b))
	assert.Equal(t, CosineSimilarity(a, b), Score(Metric{Kind: Cosine}, a, b))
	assert.Equal(t, JaccardIndexSimilarity(a, b), Score(Metric{Kind: JaccardIndex}, a, b))
	assert.Equal(t, JaccardDistanceScore(a, b), Score(Metric{Kind: JaccardDistance}, a, b))
	assert.InDelta(t, 1.0, Score(Metric{Kind: Pearson}, a, b), delta)
	assert.Panics(t, func() { Score(Metric{Kind: 100}, a, b) })
}

func TestProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a, b := randomRatings(rng, 20), randomRatings(rng, 20)
		// minkowski generalizes manhattan and euclidean
		assertSameScore(t, ManhattanDistance(a, b), MinkowskiDistance(a, b, 1))
		assertSameScore(t, EuclideanDistance(a, b), MinkowskiDistance(a, b, 2))
		// jaccard index and distance are complementary
		if IsDefined(JaccardIndexSimilarity(a, b)) {
			assert.InDelta(t, 1.0, JaccardIndexSimilarity(a, b)+JaccardDistanceScore(a, b), delta)
		}
		// symmetry
		for _, metric := range allMetrics {
			assertSameScore(t, Score(metric, a, b), Score(metric, b, a))
		}
	}
}

func assertSameScore(t *testing.T, expected, actual float64) {
	if !IsDefined(expected) {
		assert.False(t, IsDefined(actual))
		return
	}
	assert.InDelta(t, expected, actual, delta)
}
