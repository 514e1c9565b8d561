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

package main

import (
	"io"
	"math"
	"strconv"

	"github.com/gorse-io/neighbors/common/heap"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const undefined = "undefined"

func formatScore(score float64) string {
	switch {
	case math.IsNaN(score):
		return undefined
	case math.IsInf(score, -1):
		return "-inf"
	case math.IsInf(score, 1):
		return "+inf"
	}
	return strconv.FormatFloat(score, 'f', 4, 64)
}

// scoreRows formats ranked elements as rank, value and score columns.
func scoreRows(elems []heap.Elem[string, float64]) [][]string {
	return lo.Map(elems, func(elem heap.Elem[string, float64], i int) []string {
		return []string{strconv.Itoa(i + 1), elem.Value, formatScore(elem.Weight)}
	})
}

// renderScores writes ranked elements as a table.
func renderScores(w io.Writer, header []string, elems []heap.Elem[string, float64]) error {
	return renderPairs(w, header, scoreRows(elems))
}

// renderPairs writes key-value rows as a table.
func renderPairs(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(lo.ToAnySlice(header)...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
