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

// Dict assigns dense indices to ids in insertion order.
type Dict[T comparable] struct {
	si map[T]int
	is []T
}

func NewDict[T comparable]() *Dict[T] {
	return &Dict[T]{si: make(map[T]int)}
}

func (d *Dict[T]) Count() int {
	return len(d.is)
}

// Id returns the index of s, assigning a new one if s is unseen.
func (d *Dict[T]) Id(s T) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	return y
}

// Lookup returns the index of s without assigning one.
func (d *Dict[T]) Lookup(s T) (int, bool) {
	y, ok := d.si[s]
	return y, ok
}

func (d *Dict[T]) Value(id int) (s T, ok bool) {
	if id < 0 || id >= len(d.is) {
		return s, false
	}
	return d.is[id], true
}

func (d *Dict[T]) Values() []T {
	return d.is
}
