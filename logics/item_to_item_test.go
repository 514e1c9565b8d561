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

package logics

import (
	"context"
	"math"
	"testing"

	"github.com/gorse-io/neighbors/common/heap"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func newTestMatrix(t *testing.T) *ItemSimilarityMatrix[string] {
	corpus := dataset.Corpus[int, string]{
		1: {"a": 5, "b": 3, "c": 4},
		2: {"a": 4, "b": 2},
		3: {"d": 2, "e": 4},
	}
	corpus.AddUser(4)
	matrix, err := BuildItemSimilarityMatrix(context.Background(), corpus, 2)
	assert.NoError(t, err)
	return matrix
}

func TestBuildItemSimilarityMatrix(t *testing.T) {
	matrix := newTestMatrix(t)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, matrix.Order)
	assert.Len(t, matrix.Table, 5)
	for i, row := range matrix.Table {
		assert.Len(t, row, 5)
		// lower triangle
		for j := 0; j < i; j++ {
			assert.True(t, math.IsInf(row[j], -1))
		}
	}
	assert.InDelta(t, 1.0, matrix.Table[0][0], 1e-9)
	assert.InDelta(t, -1.0, matrix.Table[0][1], 1e-9)
	// zero deviation
	assert.True(t, math.IsInf(matrix.Table[0][2], -1))
	// no common raters
	assert.True(t, math.IsInf(matrix.Table[0][3], -1))
	assert.Equal(t, -1.0, matrix.Table[3][4])
}

func TestSimilarityBetween(t *testing.T) {
	matrix := newTestMatrix(t)
	score, err := SimilarityBetween(matrix.Order, matrix.Table, "b", "a")
	assert.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-9)
	score, err = SimilarityBetween(matrix.Order, matrix.Table, "a", "d")
	assert.NoError(t, err)
	assert.True(t, math.IsInf(score, -1))
	_, err = SimilarityBetween(matrix.Order, matrix.Table, "x", "a")
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = SimilarityBetween(matrix.Order, matrix.Table, "a", "x")
	assert.True(t, errors.Is(err, errors.NotFound))

	// lookups are symmetric
	for _, a := range matrix.Order {
		for _, b := range matrix.Order {
			ab, err := matrix.Between(a, b)
			assert.NoError(t, err)
			ba, err := matrix.Between(b, a)
			assert.NoError(t, err)
			assert.Equal(t, ab, ba)
			expected, err := SimilarityBetween(matrix.Order, matrix.Table, a, b)
			assert.NoError(t, err)
			assert.Equal(t, expected, ab)
		}
	}
	_, err = matrix.Between("a", "x")
	assert.ErrorIs(t, err, ErrItemNotExist)
	_, err = matrix.Between("x", "a")
	assert.ErrorIs(t, err, ErrItemNotExist)
}

func TestMostSimilar(t *testing.T) {
	matrix := newTestMatrix(t)
	items, err := matrix.MostSimilar("a", 3)
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Value)
	assert.InDelta(t, -1.0, items[0].Weight, 1e-9)
	items, err = matrix.MostSimilar("e", 3)
	assert.NoError(t, err)
	assert.Equal(t, []heap.Elem[string, float64]{{"d", -1}}, items)
	items, err = matrix.MostSimilar("c", 3)
	assert.NoError(t, err)
	assert.Empty(t, items)
	_, err = matrix.MostSimilar("x", 3)
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = matrix.MostSimilar("a", 0)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestBuildItemSimilarityMatrix_Parallel(t *testing.T) {
	corpus := randomCorpus(3, 40, 25)
	expected, err := BuildItemSimilarityMatrix(context.Background(), corpus, 1)
	assert.NoError(t, err)
	for _, jobs := range []int{2, 4, 8} {
		matrix, err := BuildItemSimilarityMatrix(context.Background(), corpus, jobs)
		assert.NoError(t, err)
		assert.Equal(t, expected.Order, matrix.Order)
		assert.Equal(t, expected.Table, matrix.Table)
	}
	// diagonal is one where defined
	for i := range expected.Order {
		if score := expected.Table[i][i]; !math.IsInf(score, -1) {
			assert.InDelta(t, 1.0, score, 1e-9)
		}
	}
}

func TestBuildItemSimilarityMatrix_Empty(t *testing.T) {
	matrix, err := BuildItemSimilarityMatrix(context.Background(), dataset.Corpus[string, int]{}, 4)
	assert.NoError(t, err)
	assert.Empty(t, matrix.Order)
	assert.Empty(t, matrix.Table)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BuildItemSimilarityMatrix(ctx, dataset.Corpus[string, int]{"u": {1: 1}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
