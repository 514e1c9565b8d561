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

package dataset

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// Ratings maps item ids to the ratings given by one user. Unrated items have no entry.
type Ratings[I constraints.Ordered] map[I]float64

// Mean returns the average rating, or NaN if nothing is rated.
func (r Ratings[I]) Mean() float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, rating := range r {
		sum += rating
	}
	return sum / float64(len(r))
}

// Items returns rated items in ascending order.
func (r Ratings[I]) Items() []I {
	items := lo.Keys(r)
	sort.Slice(items, func(i, j int) bool {
		return items[i] < items[j]
	})
	return items
}

// Corpus maps user ids to their ratings. It may hold the full dataset or one chunk of it.
type Corpus[U, I constraints.Ordered] map[U]Ratings[I]

// Add inserts or overwrites a rating.
func (c Corpus[U, I]) Add(userId U, itemId I, rating float64) {
	if _, exist := c[userId]; !exist {
		c[userId] = make(Ratings[I])
	}
	c[userId][itemId] = rating
}

// AddUser registers a user without ratings. Existing ratings are kept.
func (c Corpus[U, I]) AddUser(userId U) {
	if _, exist := c[userId]; !exist {
		c[userId] = make(Ratings[I])
	}
}

// Users returns user ids in ascending order.
func (c Corpus[U, I]) Users() []U {
	users := lo.Keys(c)
	sort.Slice(users, func(i, j int) bool {
		return users[i] < users[j]
	})
	return users
}

// Items returns every rated item in ascending order.
func (c Corpus[U, I]) Items() []I {
	items := make(map[I]struct{})
	for _, ratings := range c {
		for itemId := range ratings {
			items[itemId] = struct{}{}
		}
	}
	sorted := lo.Keys(items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	return sorted
}

// CountRatings returns the number of (user, item) ratings.
func (c Corpus[U, I]) CountRatings() int {
	n := 0
	for _, ratings := range c {
		n += len(ratings)
	}
	return n
}

// Chunks partitions the corpus into disjoint chunks of at most size users. Users are
// assigned in ascending order so that the partition is stable across calls.
func (c Corpus[U, I]) Chunks(size int) []Corpus[U, I] {
	if size <= 0 || len(c) == 0 {
		return nil
	}
	users := c.Users()
	chunks := make([]Corpus[U, I], 0, (len(users)+size-1)/size)
	for _, ids := range lo.Chunk(users, size) {
		chunk := make(Corpus[U, I], len(ids))
		for _, userId := range ids {
			chunk[userId] = c[userId]
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Slice returns the chunk at [offset, offset+limit) of the ascending user order.
func (c Corpus[U, I]) Slice(offset, limit int) Corpus[U, I] {
	users := c.Users()
	chunk := make(Corpus[U, I])
	if offset < 0 || offset >= len(users) || limit <= 0 {
		return chunk
	}
	for _, userId := range users[offset:min(offset+limit, len(users))] {
		chunk[userId] = c[userId]
	}
	return chunk
}
