// Copyright 2022 gorse Project Authors
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
	"container/heap"
	"math"

	"golang.org/x/exp/constraints"
)

// Elem is a scored candidate.
type Elem[T constraints.Ordered, W constraints.Float] struct {
	Value  T
	Weight W
}

// Better reports whether a ranks before b. If desc, larger weights are better, otherwise
// smaller ones are. Equal weights are ordered by ascending value.
func Better[T constraints.Ordered, W constraints.Float](a, b Elem[T, W], desc bool) bool {
	if a.Weight != b.Weight {
		if desc {
			return a.Weight > b.Weight
		}
		return a.Weight < b.Weight
	}
	return a.Value < b.Value
}

// _heap keeps the worst element at the root.
type _heap[T constraints.Ordered, W constraints.Float] struct {
	elems []Elem[T, W]
	desc  bool
}

func (e *_heap[T, W]) Len() int {
	return len(e.elems)
}

func (e *_heap[T, W]) Less(i, j int) bool {
	return Better(e.elems[j], e.elems[i], e.desc)
}

func (e *_heap[T, W]) Swap(i, j int) {
	e.elems[i], e.elems[j] = e.elems[j], e.elems[i]
}

func (e *_heap[T, W]) Push(x interface{}) {
	it := x.(Elem[T, W])
	e.elems = append(e.elems, it)
}

func (e *_heap[T, W]) Pop() interface{} {
	old := e.elems
	item := e.elems[len(old)-1]
	e.elems = old[0 : len(old)-1]
	return item
}

// TopKFilter filters out top k items. If desc, the k largest weights are kept,
// otherwise the k smallest.
type TopKFilter[T constraints.Ordered, W constraints.Float] struct {
	_heap[T, W]
	k int
}

// NewTopKFilter creates a top k filter.
func NewTopKFilter[T constraints.Ordered, W constraints.Float](k int, desc bool) *TopKFilter[T, W] {
	return &TopKFilter[T, W]{_heap: _heap[T, W]{desc: desc}, k: k}
}

// Push offers an item to the filter. It replaces the worst kept item only if the new one is
// better. The complexity is O(log k). NaN weights are forbidden.
func (filter *TopKFilter[T, W]) Push(item T, weight W) {
	if math.IsNaN(float64(weight)) {
		panic("NaN weight is forbidden")
	}
	if filter.k <= 0 {
		return
	}
	elem := Elem[T, W]{Value: item, Weight: weight}
	if filter.Len() < filter.k {
		heap.Push(&filter._heap, elem)
	} else if Better(elem, filter.elems[0], filter.desc) {
		filter.elems[0] = elem
		heap.Fix(&filter._heap, 0)
	}
}

// Peek returns the worst kept item.
func (filter *TopKFilter[T, W]) Peek() (Elem[T, W], bool) {
	if filter.Len() == 0 {
		return Elem[T, W]{}, false
	}
	return filter.elems[0], true
}

// PopAll pops all items in the filter, best first.
func (filter *TopKFilter[T, W]) PopAll() []Elem[T, W] {
	elems := make([]Elem[T, W], filter.Len())
	for i := len(elems) - 1; i >= 0; i-- {
		elems[i] = heap.Pop(&filter._heap).(Elem[T, W])
	}
	return elems
}

// PopAllValues pops all values in the filter, best first.
func (filter *TopKFilter[T, W]) PopAllValues() []T {
	elems := filter.PopAll()
	values := make([]T, len(elems))
	for i, elem := range elems {
		values[i] = elem.Value
	}
	return values
}
