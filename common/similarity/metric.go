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

package similarity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Polarity tells which direction of a score is better.
type Polarity int

const (
	// Minimize means smaller scores are better (distances).
	Minimize Polarity = iota
	// Maximize means larger scores are better (similarities).
	Maximize
)

func (p Polarity) String() string {
	if p == Maximize {
		return "maximize"
	}
	return "minimize"
}

type Kind int

const (
	Manhattan Kind = iota
	Euclidean
	Minkowski
	Pearson
	Cosine
	JaccardDistance
	JaccardIndex
)

var kindNames = map[Kind]string{
	Manhattan:       "manhattan",
	Euclidean:       "euclidean",
	Minkowski:       "minkowski",
	Pearson:         "pearson",
	Cosine:          "cosine",
	JaccardDistance: "jaccard_distance",
	JaccardIndex:    "jaccard_index",
}

// Metric selects a distance or similarity function. Grade is only used by Minkowski.
type Metric struct {
	Kind  Kind
	Grade int
}

func NewMinkowski(grade int) Metric {
	return Metric{Kind: Minkowski, Grade: grade}
}

// Validate rejects unknown kinds and Minkowski grades below one.
func (m Metric) Validate() error {
	if _, ok := kindNames[m.Kind]; !ok {
		return errors.NotValidf("metric kind %d", m.Kind)
	}
	if m.Kind == Minkowski && m.Grade < 1 {
		return errors.NotValidf("minkowski grade %d", m.Grade)
	}
	return nil
}

// Polarity returns Minimize for distances and Maximize for similarities.
func (m Metric) Polarity() Polarity {
	switch m.Kind {
	case Manhattan, Euclidean, Minkowski, JaccardDistance:
		return Minimize
	case Pearson, Cosine, JaccardIndex:
		return Maximize
	default:
		panic(fmt.Sprintf("unknown metric kind %d", m.Kind))
	}
}

func (m Metric) String() string {
	if m.Kind == Minkowski {
		return fmt.Sprintf("%s:%d", kindNames[Minkowski], m.Grade)
	}
	if name, ok := kindNames[m.Kind]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", m.Kind)
}

// ParseMetric parses names produced by Metric.String, e.g. "pearson" or "minkowski:3".
func ParseMetric(s string) (Metric, error) {
	name, grade, hasGrade := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	for kind, kindName := range kindNames {
		if kindName != name {
			continue
		}
		metric := Metric{Kind: kind}
		if kind == Minkowski {
			if !hasGrade {
				return Metric{}, errors.NotValidf("minkowski metric %q without grade", s)
			}
			g, err := strconv.Atoi(grade)
			if err != nil {
				return Metric{}, errors.NotValidf("minkowski grade %q", grade)
			}
			metric.Grade = g
		} else if hasGrade {
			return Metric{}, errors.NotValidf("grade for metric %q", name)
		}
		if err := metric.Validate(); err != nil {
			return Metric{}, errors.Trace(err)
		}
		return metric, nil
	}
	return Metric{}, errors.NotValidf("metric %q", s)
}
