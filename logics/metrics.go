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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScannedChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neighbors",
		Subsystem: "user_to_user",
		Name:      "scanned_chunks_total",
		Help:      "Number of rating chunks scanned by neighbor searches.",
	})
	ScoredUsersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neighbors",
		Subsystem: "user_to_user",
		Name:      "scored_users_total",
		Help:      "Number of users compared with a target user.",
	})
	ItemSimilarityMatrixItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "neighbors",
		Subsystem: "item_to_item",
		Name:      "matrix_items",
		Help:      "Number of items in the last built similarity matrix.",
	})
	ItemSimilarityMatrixSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "neighbors",
		Subsystem: "item_to_item",
		Name:      "build_seconds",
		Help:      "Time spent building item similarity matrices.",
	})
)
