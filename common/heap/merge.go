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

package heap

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Merge combines two reduced lists into the best k of their union. A value present in both
// lists is kept once, with its better weight. Merge is associative and commutative, so
// partial results may be folded in any order.
func Merge[T constraints.Ordered, W constraints.Float](k int, desc bool, a, b []Elem[T, W]) []Elem[T, W] {
	if k <= 0 {
		return []Elem[T, W]{}
	}
	best := make(map[T]Elem[T, W], len(a)+len(b))
	for _, list := range [][]Elem[T, W]{a, b} {
		for _, elem := range list {
			if prev, exist := best[elem.Value]; !exist || Better(elem, prev, desc) {
				best[elem.Value] = elem
			}
		}
	}
	merged := make([]Elem[T, W], 0, len(best))
	for _, elem := range best {
		merged = append(merged, elem)
	}
	sort.Slice(merged, func(i, j int) bool {
		return Better(merged[i], merged[j], desc)
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
