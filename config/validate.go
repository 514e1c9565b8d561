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

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/gorse-io/neighbors/storage"
	"github.com/juju/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		path := fl.Field().String()
		for _, prefix := range storage.DataStorePrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		metric := sl.Current().Interface().(similarity.Metric)
		if metric.Validate() != nil {
			sl.ReportError(metric.Grade, "Grade", "Grade", "metric", "")
		}
	}, similarity.Metric{})
	return v
}

// Validate checks value ranges and the data store scheme.
func (config *Config) Validate() error {
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}
