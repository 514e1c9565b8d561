// Copyright 2021 gorse Project Authors
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

package data

import (
	"context"
	"time"

	"github.com/gorse-io/neighbors/dataset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchInsertRatingsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "neighbors",
		Subsystem: "database",
		Name:      "batch_insert_ratings_seconds",
	})
	GetUserRatingsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "neighbors",
		Subsystem: "database",
		Name:      "get_user_ratings_seconds",
	})
	GetRatingsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "neighbors",
		Subsystem: "database",
		Name:      "get_ratings_seconds",
	})
	GetRatingsChunkSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "neighbors",
		Subsystem: "database",
		Name:      "get_ratings_chunk_seconds",
	})

	LoadedRatingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neighbors",
		Subsystem: "database",
		Name:      "loaded_ratings_total",
	})
)

type instrumentedDatabase struct {
	Database
}

// WithMetrics records latencies of rating reads and writes.
func WithMetrics(database Database) Database {
	return &instrumentedDatabase{Database: database}
}

func (d *instrumentedDatabase) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	start := time.Now()
	err := d.Database.BatchInsertRatings(ctx, ratings)
	BatchInsertRatingsSeconds.Observe(time.Since(start).Seconds())
	return err
}

func (d *instrumentedDatabase) GetUserRatings(ctx context.Context, userId string) (dataset.Ratings[string], error) {
	start := time.Now()
	ratings, err := d.Database.GetUserRatings(ctx, userId)
	GetUserRatingsSeconds.Observe(time.Since(start).Seconds())
	LoadedRatingsTotal.Add(float64(len(ratings)))
	return ratings, err
}

func (d *instrumentedDatabase) GetRatings(ctx context.Context) (dataset.Corpus[string, string], error) {
	start := time.Now()
	corpus, err := d.Database.GetRatings(ctx)
	GetRatingsSeconds.Observe(time.Since(start).Seconds())
	LoadedRatingsTotal.Add(float64(corpus.CountRatings()))
	return corpus, err
}

func (d *instrumentedDatabase) GetRatingsChunk(ctx context.Context, offset, limit int) (dataset.Corpus[string, string], error) {
	start := time.Now()
	corpus, err := d.Database.GetRatingsChunk(ctx, offset, limit)
	GetRatingsChunkSeconds.Observe(time.Since(start).Seconds())
	LoadedRatingsTotal.Add(float64(corpus.CountRatings()))
	return corpus, err
}
