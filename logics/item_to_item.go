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
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/neighbors/common/heap"
	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/common/parallel"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

var ErrItemNotExist = errors.NotFoundf("item")

// ItemSimilarityMatrix holds adjusted cosine similarities between items. Only the upper
// triangle of Table, diagonal included, is filled. The lower triangle and pairs without a
// defined similarity hold negative infinity.
type ItemSimilarityMatrix[I constraints.Ordered] struct {
	Order []I
	Table [][]float64
	index map[I]int
}

// BuildItemSimilarityMatrix computes similarities between all items of corpus. Ratings are
// centered by the mean rating of each user, and the cosine of two items is taken over the
// users who rated both. Rows are computed by jobs goroutines.
func BuildItemSimilarityMatrix[U, I constraints.Ordered](ctx context.Context, corpus dataset.Corpus[U, I], jobs int) (*ItemSimilarityMatrix[I], error) {
	start := time.Now()
	// deviations from user means
	users := dataset.NewDict[U]()
	var deviations []dataset.Ratings[I]
	for _, userId := range corpus.Users() {
		ratings := corpus[userId]
		users.Id(userId)
		mean := ratings.Mean()
		deviation := make(dataset.Ratings[I], len(ratings))
		for itemId, rating := range ratings {
			deviation[itemId] = rating - mean
		}
		deviations = append(deviations, deviation)
	}
	// raters of items
	order := corpus.Items()
	index := make(map[I]int, len(order))
	raters := make([]*bitset.BitSet, len(order))
	for i, itemId := range order {
		index[itemId] = i
		raters[i] = bitset.New(uint(users.Count()))
	}
	for userId, ratings := range corpus {
		userIndex, _ := users.Lookup(userId)
		for itemId := range ratings {
			raters[index[itemId]].Set(uint(userIndex))
		}
	}
	// fill upper triangle
	table := make([][]float64, len(order))
	if err := parallel.For(ctx, len(order), jobs, func(i int) {
		row := make([]float64, len(order))
		for j := 0; j < i; j++ {
			row[j] = math.Inf(-1)
		}
		for j := i; j < len(order); j++ {
			common := raters[i].Intersection(raters[j])
			var numerator, firstSquare, secondSquare float64
			for u, ok := common.NextSet(0); ok; u, ok = common.NextSet(u + 1) {
				first := deviations[u][order[i]]
				second := deviations[u][order[j]]
				numerator += first * second
				firstSquare += first * first
				secondSquare += second * second
			}
			score := numerator / (math.Sqrt(firstSquare) * math.Sqrt(secondSquare))
			if !similarity.IsDefined(score) {
				score = math.Inf(-1)
			}
			row[j] = score
		}
		table[i] = row
	}); err != nil {
		return nil, errors.Trace(err)
	}
	ItemSimilarityMatrixItems.Set(float64(len(order)))
	ItemSimilarityMatrixSeconds.Observe(time.Since(start).Seconds())
	log.Logger().Debug("build item similarity matrix",
		zap.Int("n_items", len(order)),
		zap.Int("n_users", users.Count()),
		zap.Duration("duration", time.Since(start)))
	return &ItemSimilarityMatrix[I]{Order: order, Table: table, index: index}, nil
}

// SimilarityBetween looks up the similarity of two items in an upper triangular table.
func SimilarityBetween[I constraints.Ordered](order []I, table [][]float64, a, b I) (float64, error) {
	i, j := lo.IndexOf(order, a), lo.IndexOf(order, b)
	if i < 0 {
		return 0, errors.Annotatef(ErrItemNotExist, "%v", a)
	}
	if j < 0 {
		return 0, errors.Annotatef(ErrItemNotExist, "%v", b)
	}
	return max(table[i][j], table[j][i]), nil
}

// Between returns the similarity of two items, or negative infinity if it is undefined.
func (m *ItemSimilarityMatrix[I]) Between(a, b I) (float64, error) {
	i, exist := m.index[a]
	if !exist {
		return 0, errors.Annotatef(ErrItemNotExist, "%v", a)
	}
	j, exist := m.index[b]
	if !exist {
		return 0, errors.Annotatef(ErrItemNotExist, "%v", b)
	}
	return max(m.Table[i][j], m.Table[j][i]), nil
}

// MostSimilar returns the n items most similar to an item, best first. Items without a
// defined similarity are excluded.
func (m *ItemSimilarityMatrix[I]) MostSimilar(itemId I, n int) ([]heap.Elem[I, float64], error) {
	if n <= 0 {
		return nil, errors.NotValidf("n = %d", n)
	}
	i, exist := m.index[itemId]
	if !exist {
		return nil, errors.Annotatef(ErrItemNotExist, "%v", itemId)
	}
	filter := heap.NewTopKFilter[I, float64](n, true)
	for j, other := range m.Order {
		if j == i {
			continue
		}
		if score := max(m.Table[i][j], m.Table[j][i]); similarity.IsDefined(score) {
			filter.Push(other, score)
		}
	}
	return filter.PopAll(), nil
}
