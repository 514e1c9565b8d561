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
	"fmt"

	"github.com/gorse-io/neighbors/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) SetupTest() {
	err := suite.Database.Purge()
	suite.NoError(err)
}

func (suite *baseTestSuite) TestPing() {
	suite.NoError(suite.Database.Ping())
}

func (suite *baseTestSuite) TestUsers() {
	ctx := context.Background()
	err := suite.Database.BatchInsertUsers(ctx, []User{{UserId: "1"}, {UserId: "2"}, {UserId: "3"}, {UserId: "1"}})
	suite.NoError(err)
	err = suite.Database.BatchInsertUsers(ctx, []User{{UserId: "3"}, {UserId: "4"}})
	suite.NoError(err)
	count, err := suite.Database.CountUsers(ctx)
	suite.NoError(err)
	suite.Equal(4, count)
	// user without ratings
	ratings, err := suite.Database.GetUserRatings(ctx, "1")
	suite.NoError(err)
	suite.Empty(ratings)
	// missing user
	_, err = suite.Database.GetUserRatings(ctx, "0")
	suite.True(errors.Is(err, errors.NotFound), err)
	// empty batch
	suite.NoError(suite.Database.BatchInsertUsers(ctx, nil))
	suite.NoError(suite.Database.BatchInsertRatings(ctx, nil))
}

func (suite *baseTestSuite) TestRatings() {
	ctx := context.Background()
	err := suite.Database.BatchInsertRatings(ctx, []Rating{
		{"alice", "1", 5},
		{"alice", "2", 3},
		{"bob", "1", 4.5},
		{"bob", "3", 1},
		{"carol", "2", 2},
		{"bob", "3", 2.5},
	})
	suite.NoError(err)
	err = suite.Database.BatchInsertUsers(ctx, []User{{UserId: "dave"}})
	suite.NoError(err)
	// overwrite rating
	err = suite.Database.BatchInsertRatings(ctx, []Rating{{"alice", "2", 4}})
	suite.NoError(err)

	ratings, err := suite.Database.GetUserRatings(ctx, "alice")
	suite.NoError(err)
	suite.Equal(dataset.Ratings[string]{"1": 5, "2": 4}, ratings)
	ratings, err = suite.Database.GetUserRatings(ctx, "bob")
	suite.NoError(err)
	suite.Equal(dataset.Ratings[string]{"1": 4.5, "3": 2.5}, ratings)
	count, err := suite.Database.CountUsers(ctx)
	suite.NoError(err)
	suite.Equal(4, count)

	corpus, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Equal([]string{"alice", "bob", "carol", "dave"}, corpus.Users())
	suite.Equal(5, corpus.CountRatings())
	suite.Equal(dataset.Ratings[string]{"2": 2}, corpus["carol"])
	suite.Empty(corpus["dave"])
}

func (suite *baseTestSuite) TestNames() {
	ctx := context.Background()
	err := suite.Database.BatchInsertUsers(ctx, []User{
		{UserId: "3", Name: "Heather"},
		{UserId: "1", Name: "Patrick C"},
		{UserId: "2", Name: "Heather"},
		{UserId: "4"},
	})
	suite.NoError(err)
	// ratings and unnamed inserts keep names
	err = suite.Database.BatchInsertRatings(ctx, []Rating{{"1", "10", 4}, {"2", "10", 3}})
	suite.NoError(err)
	err = suite.Database.BatchInsertUsers(ctx, []User{{UserId: "1"}})
	suite.NoError(err)
	users, err := suite.Database.GetUserByName(ctx, "Heather")
	suite.NoError(err)
	suite.Equal([]User{{UserId: "2", Name: "Heather"}, {UserId: "3", Name: "Heather"}}, users)
	users, err = suite.Database.GetUserByName(ctx, "Patrick C")
	suite.NoError(err)
	suite.Equal([]User{{UserId: "1", Name: "Patrick C"}}, users)
	// rename
	err = suite.Database.BatchInsertUsers(ctx, []User{{UserId: "3", Name: "Bryan"}})
	suite.NoError(err)
	users, err = suite.Database.GetUserByName(ctx, "Heather")
	suite.NoError(err)
	suite.Equal([]User{{UserId: "2", Name: "Heather"}}, users)
	count, err := suite.Database.CountUsers(ctx)
	suite.NoError(err)
	suite.Equal(4, count)
	_, err = suite.Database.GetUserByName(ctx, "Zoe")
	suite.True(errors.Is(err, errors.NotFound), err)
	_, err = suite.Database.GetUserByName(ctx, "")
	suite.True(errors.Is(err, errors.NotValid), err)

	err = suite.Database.BatchInsertItems(ctx, []Item{
		{ItemId: "10", Name: "Alien"},
		{ItemId: "11", Name: "Avatar"},
		{ItemId: "12", Name: "Alien"},
		{ItemId: "11", Name: "Braveheart"},
	})
	suite.NoError(err)
	items, err := suite.Database.GetItemByName(ctx, "Alien")
	suite.NoError(err)
	suite.Equal([]Item{{ItemId: "10", Name: "Alien"}, {ItemId: "12", Name: "Alien"}}, items)
	items, err = suite.Database.GetItemByName(ctx, "Braveheart")
	suite.NoError(err)
	suite.Equal([]Item{{ItemId: "11", Name: "Braveheart"}}, items)
	_, err = suite.Database.GetItemByName(ctx, "Avatar")
	suite.True(errors.Is(err, errors.NotFound), err)
	suite.NoError(suite.Database.BatchInsertItems(ctx, nil))

	// purge removes names
	suite.NoError(suite.Database.Purge())
	_, err = suite.Database.GetUserByName(ctx, "Patrick C")
	suite.True(errors.Is(err, errors.NotFound), err)
	_, err = suite.Database.GetItemByName(ctx, "Alien")
	suite.True(errors.Is(err, errors.NotFound), err)
}

func (suite *baseTestSuite) TestRatingsChunk() {
	ctx := context.Background()
	var ratings []Rating
	for i := 0; i < 10; i++ {
		userId := fmt.Sprintf("user%d", i)
		for j := 0; j <= i; j++ {
			ratings = append(ratings, Rating{userId, fmt.Sprintf("item%d", j), float64(i + j)})
		}
	}
	err := suite.Database.BatchInsertRatings(ctx, ratings)
	suite.NoError(err)
	err = suite.Database.BatchInsertUsers(ctx, []User{{UserId: "user99"}})
	suite.NoError(err)

	all, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Len(all, 11)

	// successive chunks partition all users
	var sizes []int
	var users []string
	union := make(dataset.Corpus[string, string])
	for offset := 0; ; offset += 3 {
		chunk, err := suite.Database.GetRatingsChunk(ctx, offset, 3)
		suite.NoError(err)
		if len(chunk) == 0 {
			break
		}
		sizes = append(sizes, len(chunk))
		users = append(users, chunk.Users()...)
		for userId, ratings := range chunk {
			union[userId] = ratings
		}
	}
	suite.Equal([]int{3, 3, 3, 2}, sizes)
	suite.Equal(all.Users(), users)
	suite.Equal(lo.Uniq(users), users)
	suite.Equal(all.CountRatings(), union.CountRatings())
	suite.Equal(all["user5"], union["user5"])
	suite.Empty(union["user99"])

	// first chunk follows ascending user ids
	chunk, err := suite.Database.GetRatingsChunk(ctx, 0, 2)
	suite.NoError(err)
	suite.Equal([]string{"user0", "user1"}, chunk.Users())
	suite.Equal(dataset.Ratings[string]{"item0": 1, "item1": 2}, chunk["user1"])

	// invalid range
	_, err = suite.Database.GetRatingsChunk(ctx, 0, 0)
	suite.True(errors.Is(err, errors.NotValid))
	_, err = suite.Database.GetRatingsChunk(ctx, -1, 3)
	suite.True(errors.Is(err, errors.NotValid))
}

func (suite *baseTestSuite) TestPurge() {
	ctx := context.Background()
	err := suite.Database.BatchInsertRatings(ctx, []Rating{{"1", "1", 1}, {"2", "2", 2}})
	suite.NoError(err)
	err = suite.Database.Purge()
	suite.NoError(err)
	count, err := suite.Database.CountUsers(ctx)
	suite.NoError(err)
	suite.Zero(count)
	corpus, err := suite.Database.GetRatings(ctx)
	suite.NoError(err)
	suite.Empty(corpus)
	_, err = suite.Database.GetUserRatings(ctx, "1")
	suite.True(errors.Is(err, errors.NotFound))
}

func (suite *baseTestSuite) TestMetrics() {
	ctx := context.Background()
	database := WithMetrics(suite.Database)
	err := database.BatchInsertRatings(ctx, []Rating{{"1", "1", 1}, {"1", "2", 2}})
	suite.NoError(err)
	ratings, err := database.GetUserRatings(ctx, "1")
	suite.NoError(err)
	suite.Len(ratings, 2)
	corpus, err := database.GetRatingsChunk(ctx, 0, 10)
	suite.NoError(err)
	suite.Equal(2, corpus.CountRatings())
	corpus, err = database.GetRatings(ctx)
	suite.NoError(err)
	suite.Equal(2, corpus.CountRatings())
}
