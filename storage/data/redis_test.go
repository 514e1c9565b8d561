// Copyright 2020 gorse Project Authors
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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorse-io/neighbors/storage"
	"github.com/stretchr/testify/suite"
)

type RedisTestSuite struct {
	baseTestSuite
	server *miniredis.Miniredis
}

func (suite *RedisTestSuite) SetupSuite() {
	var err error
	suite.server, err = miniredis.Run()
	suite.NoError(err)
	suite.Database, err = Open(storage.RedisPrefix+suite.server.Addr(), "nb_")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *RedisTestSuite) TearDownSuite() {
	err := suite.Database.Close()
	suite.NoError(err)
	suite.server.Close()
}

func (suite *RedisTestSuite) TestKeys() {
	err := suite.Database.BatchInsertRatings(context.Background(), []Rating{{"1", "2", 3}})
	suite.NoError(err)
	suite.True(suite.server.Exists("nb_users"))
	suite.Equal("3", suite.server.HGet("nb_ratings/1", "2"))
	err = suite.Database.BatchInsertUsers(context.Background(), []User{{UserId: "1", Name: "Patrick C"}})
	suite.NoError(err)
	suite.Equal("Patrick C", suite.server.HGet("nb_users/names", "1"))
	err = suite.Database.BatchInsertItems(context.Background(), []Item{{ItemId: "2", Name: "Alien"}})
	suite.NoError(err)
	suite.Equal("Alien", suite.server.HGet("nb_items", "2"))
}

func TestRedis(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}
