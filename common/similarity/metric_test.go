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
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestMetric_Polarity(t *testing.T) {
	assert.Equal(t, Minimize, Metric{Kind: Manhattan}.Polarity())
	assert.Equal(t, Minimize, Metric{Kind: Euclidean}.Polarity())
	assert.Equal(t, Minimize, NewMinkowski(3).Polarity())
	assert.Equal(t, Minimize, Metric{Kind: JaccardDistance}.Polarity())
	assert.Equal(t, Maximize, Metric{Kind: Pearson}.Polarity())
	assert.Equal(t, Maximize, Metric{Kind: Cosine}.Polarity())
	assert.Equal(t, Maximize, Metric{Kind: JaccardIndex}.Polarity())
	assert.Panics(t, func() { Metric{Kind: 100}.Polarity() })
	assert.Equal(t, "maximize", Maximize.String())
	assert.Equal(t, "minimize", Minimize.String())
}

func TestMetric_Validate(t *testing.T) {
	assert.NoError(t, NewMinkowski(1).Validate())
	assert.True(t, errors.Is(NewMinkowski(0).Validate(), errors.NotValid))
	assert.True(t, errors.Is(NewMinkowski(-2).Validate(), errors.NotValid))
	assert.True(t, errors.Is(Metric{Kind: 100}.Validate(), errors.NotValid))
	// grade is ignored by other metrics
	assert.NoError(t, Metric{Kind: Pearson}.Validate())
}

func TestParseMetric(t *testing.T) {
	for _, metric := range []Metric{
		{Kind: Manhattan},
		{Kind: Euclidean},
		NewMinkowski(3),
		{Kind: Pearson},
		{Kind: Cosine},
		{Kind: JaccardDistance},
		{Kind: JaccardIndex},
	} {
		parsed, err := ParseMetric(metric.String())
		assert.NoError(t, err)
		assert.Equal(t, metric, parsed)
	}
	metric, err := ParseMetric(" Euclidean ")
	assert.NoError(t, err)
	assert.Equal(t, Metric{Kind: Euclidean}, metric)
	_, err = ParseMetric("minkowski")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ParseMetric("minkowski:0")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ParseMetric("minkowski:x")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ParseMetric("pearson:2")
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ParseMetric("hamming")
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Equal(t, "metric(100)", Metric{Kind: 100}.String())
}
