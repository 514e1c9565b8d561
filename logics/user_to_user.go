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
	"github.com/gorse-io/neighbors/common/parallel"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/gorse-io/neighbors/config"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
)

// RatingSource supplies ratings to the engine.
type RatingSource interface {
	GetUserRatings(ctx context.Context, userId string) (dataset.Ratings[string], error)
	GetRatings(ctx context.Context) (dataset.Corpus[string, string], error)
	// GetRatingsChunk returns at most limit users starting at offset. Successive offsets
	// with a fixed limit partition all users.
	GetRatingsChunk(ctx context.Context, offset, limit int) (dataset.Corpus[string, string], error)
}

func validateNeighbors(k int, metric similarity.Metric) error {
	if k <= 0 {
		return errors.NotValidf("k = %d", k)
	}
	return errors.Trace(metric.Validate())
}

// KNearestNeighbors returns the k users in corpus closest to the target, best first. The target
// itself and users with undefined scores are skipped. Ties are broken by ascending user id.
func KNearestNeighbors[U, I constraints.Ordered](k int, targetId U, target dataset.Ratings[I],
	corpus dataset.Corpus[U, I], metric similarity.Metric) ([]heap.Elem[U, float64], error) {
	if err := validateNeighbors(k, metric); err != nil {
		return nil, errors.Trace(err)
	}
	if len(target) == 0 {
		return []heap.Elem[U, float64]{}, nil
	}
	filter := heap.NewTopKFilter[U, float64](k, metric.Polarity() == similarity.Maximize)
	for userId, ratings := range corpus {
		if userId == targetId {
			continue
		}
		score := similarity.Score(metric, target, ratings)
		if !similarity.IsDefined(score) {
			continue
		}
		filter.Push(userId, score)
	}
	return filter.PopAll(), nil
}

// MergeTopK merges neighbors found in two disjoint chunks into the best k of both.
func MergeTopK[U constraints.Ordered](k int, a, b []heap.Elem[U, float64], metric similarity.Metric) ([]heap.Elem[U, float64], error) {
	if err := validateNeighbors(k, metric); err != nil {
		return nil, errors.Trace(err)
	}
	return heap.Merge(k, metric.Polarity() == similarity.Maximize, a, b), nil
}

// UserToUser searches neighbors of a user by scanning a RatingSource chunk by chunk,
// so only ChunkSize users are held in memory per job.
type UserToUser struct {
	k         int
	metric    similarity.Metric
	chunkSize int
	jobs      int
	progress  func(users int)
}

func NewUserToUser(cfg config.NeighborsConfig) (*UserToUser, error) {
	if err := validateNeighbors(cfg.K, cfg.Metric); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Jobs <= 0 {
		return nil, errors.NotValidf("jobs = %d", cfg.Jobs)
	}
	return &UserToUser{
		k:         cfg.K,
		metric:    cfg.Metric,
		chunkSize: cfg.ChunkSize,
		jobs:      cfg.Jobs,
	}, nil
}

func (u *UserToUser) Metric() similarity.Metric {
	return u.metric
}

// SetProgress registers a callback invoked with the number of users scanned by each step.
func (u *UserToUser) SetProgress(progress func(users int)) {
	u.progress = progress
}

func (u *UserToUser) report(users int) {
	if u.progress != nil {
		u.progress(users)
	}
}

// FindNeighbors returns the k nearest neighbors of a user, best first.
func (u *UserToUser) FindNeighbors(ctx context.Context, source RatingSource, userId string) ([]heap.Elem[string, float64], error) {
	target, err := source.GetUserRatings(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// load all users at once
	if u.chunkSize <= 0 {
		corpus, err := source.GetRatings(ctx)
		if err != nil {
			return nil, errors.Trace(err)
		}
		ScannedChunksTotal.Inc()
		ScoredUsersTotal.Add(float64(len(corpus)))
		u.report(len(corpus))
		return KNearestNeighbors(u.k, userId, target, corpus, u.metric)
	}
	// scan chunks
	running := []heap.Elem[string, float64]{}
	for offset, done := 0, false; !done; {
		if err = ctx.Err(); err != nil {
			return nil, errors.Trace(err)
		}
		var chunks []dataset.Corpus[string, string]
		for len(chunks) < u.jobs && !done {
			chunk, err := source.GetRatingsChunk(ctx, offset, u.chunkSize)
			if err != nil {
				return nil, errors.Trace(err)
			}
			log.Logger().Debug("load ratings chunk",
				zap.Int("offset", offset), zap.Int("users", len(chunk)))
			if len(chunk) > 0 {
				chunks = append(chunks, chunk)
			}
			offset += u.chunkSize
			done = len(chunk) < u.chunkSize
		}
		// search chunks concurrently
		results := make([][]heap.Elem[string, float64], len(chunks))
		if err = parallel.Parallel(ctx, len(chunks), u.jobs, func(_, jobId int) error {
			var err error
			results[jobId], err = KNearestNeighbors(u.k, userId, target, chunks[jobId], u.metric)
			return errors.Trace(err)
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// fold in chunk order
		for i, result := range results {
			if running, err = MergeTopK(u.k, running, result, u.metric); err != nil {
				return nil, errors.Trace(err)
			}
			ScannedChunksTotal.Inc()
			ScoredUsersTotal.Add(float64(len(chunks[i])))
			u.report(len(chunks[i]))
		}
	}
	return running, nil
}
