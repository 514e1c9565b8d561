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

	"github.com/gorse-io/neighbors/common/heap"
	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/gorse-io/neighbors/config"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

func neighborRatings[U, I constraints.Ordered](corpus dataset.Corpus[U, I], neighbor heap.Elem[U, float64]) (dataset.Ratings[I], error) {
	ratings, exist := corpus[neighbor.Value]
	if !exist {
		return nil, errors.NotFoundf("user %v", neighbor.Value)
	}
	return ratings, nil
}

// PredictRating estimates the rating on an item as the weighted average of neighbor ratings.
// Only neighbors who rated the item count. It returns false if no neighbor qualifies or the
// weights sum to zero. Neighbors missing from corpus are reported as NotFound.
func PredictRating[U, I constraints.Ordered](neighbors []heap.Elem[U, float64], corpus dataset.Corpus[U, I], itemId I) (float64, bool, error) {
	var sum, weights float64
	for _, neighbor := range neighbors {
		ratings, err := neighborRatings(corpus, neighbor)
		if err != nil {
			return 0, false, errors.Trace(err)
		}
		if !similarity.IsDefined(neighbor.Weight) {
			continue
		}
		if rating, rated := ratings[itemId]; rated {
			sum += rating * neighbor.Weight
			weights += neighbor.Weight
		}
	}
	if weights == 0 {
		return 0, false, nil
	}
	return sum / weights, true, nil
}

// Recommend ranks items rated by neighbors but not by the target. The score of an item is
// the sum of neighbor ratings multiplied by neighbor weights, so weights must grow with
// similarity. Scores are not normalized.
func Recommend[U, I constraints.Ordered](neighbors []heap.Elem[U, float64], corpus dataset.Corpus[U, I],
	target dataset.Ratings[I], topN int) ([]heap.Elem[I, float64], error) {
	if topN <= 0 {
		return nil, errors.NotValidf("top n = %d", topN)
	}
	scores := make(map[I]float64)
	for _, neighbor := range neighbors {
		ratings, err := neighborRatings(corpus, neighbor)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if !similarity.IsDefined(neighbor.Weight) {
			continue
		}
		for itemId, rating := range ratings {
			if _, rated := target[itemId]; !rated {
				scores[itemId] += rating * neighbor.Weight
			}
		}
	}
	filter := heap.NewTopKFilter[I, float64](topN, true)
	for itemId, score := range scores {
		if similarity.IsDefined(score) {
			filter.Push(itemId, score)
		}
	}
	return filter.PopAll(), nil
}

// NormalizeRecommendations divides scores by the sum of defined neighbor weights. The divisor
// is shared by all items, so the order is unchanged. Scores are returned as is if the weights
// sum to zero.
func NormalizeRecommendations[U, I constraints.Ordered](recommendations []heap.Elem[I, float64], neighbors []heap.Elem[U, float64]) []heap.Elem[I, float64] {
	total := lo.SumBy(neighbors, func(neighbor heap.Elem[U, float64]) float64 {
		if similarity.IsDefined(neighbor.Weight) {
			return neighbor.Weight
		}
		return 0
	})
	if total == 0 {
		return recommendations
	}
	return lo.Map(recommendations, func(elem heap.Elem[I, float64], _ int) heap.Elem[I, float64] {
		return heap.Elem[I, float64]{Value: elem.Value, Weight: elem.Weight / total}
	})
}

// Recommender predicts ratings and recommends items for users of a RatingSource.
type Recommender struct {
	userToUser *UserToUser
	source     RatingSource
	topN       int
	normalize  bool
}

// NewRecommender creates a recommender. The neighbor metric must be a similarity, since
// neighbor scores are used as weights.
func NewRecommender(cfg *config.Config, source RatingSource) (*Recommender, error) {
	if cfg.Neighbors.Metric.Validate() == nil && cfg.Neighbors.Metric.Polarity() != similarity.Maximize {
		return nil, errors.NotValidf("metric %v for weighting neighbors", cfg.Neighbors.Metric)
	}
	if cfg.Recommend.TopN <= 0 {
		return nil, errors.NotValidf("top n = %d", cfg.Recommend.TopN)
	}
	userToUser, err := NewUserToUser(cfg.Neighbors)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Recommender{
		userToUser: userToUser,
		source:     source,
		topN:       cfg.Recommend.TopN,
		normalize:  cfg.Recommend.Normalize,
	}, nil
}

func (r *Recommender) UserToUser() *UserToUser {
	return r.userToUser
}

// Neighbors finds neighbors of a user and loads their ratings.
func (r *Recommender) Neighbors(ctx context.Context, userId string) ([]heap.Elem[string, float64], dataset.Corpus[string, string], error) {
	neighbors, err := r.userToUser.FindNeighbors(ctx, r.source, userId)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	corpus := make(dataset.Corpus[string, string], len(neighbors))
	for _, neighbor := range neighbors {
		ratings, err := r.source.GetUserRatings(ctx, neighbor.Value)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		corpus[neighbor.Value] = ratings
	}
	log.Logger().Debug("find neighbors", zap.String("user_id", userId), zap.Int("n", len(neighbors)))
	return neighbors, corpus, nil
}

// Predict estimates the rating of a user on an item. It returns false if no neighbor rated the item.
func (r *Recommender) Predict(ctx context.Context, userId, itemId string) (float64, bool, error) {
	neighbors, corpus, err := r.Neighbors(ctx, userId)
	if err != nil {
		return 0, false, errors.Trace(err)
	}
	rating, ok, err := PredictRating(neighbors, corpus, itemId)
	return rating, ok, errors.Trace(err)
}

// Recommend returns top n items for a user, best first.
func (r *Recommender) Recommend(ctx context.Context, userId string) ([]heap.Elem[string, float64], error) {
	target, err := r.source.GetUserRatings(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	neighbors, corpus, err := r.Neighbors(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	recommendations, err := Recommend(neighbors, corpus, target, r.topN)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if r.normalize {
		recommendations = NormalizeRecommendations(recommendations, neighbors)
	}
	return recommendations, nil
}
