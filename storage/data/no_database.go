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

	"github.com/gorse-io/neighbors/dataset"
)

// NoDatabase means that no database used.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertUsers(_ context.Context, _ []User) error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertRatings(_ context.Context, _ []Rating) error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertItems(_ context.Context, _ []Item) error {
	return ErrNoDatabase
}

func (NoDatabase) GetUserByName(_ context.Context, _ string) ([]User, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetItemByName(_ context.Context, _ string) ([]Item, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) CountUsers(_ context.Context) (int, error) {
	return 0, ErrNoDatabase
}

func (NoDatabase) GetUserRatings(_ context.Context, _ string) (dataset.Ratings[string], error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRatings(_ context.Context) (dataset.Corpus[string, string], error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRatingsChunk(_ context.Context, _, _ int) (dataset.Corpus[string, string], error) {
	return nil, ErrNoDatabase
}
