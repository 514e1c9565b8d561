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
	"sort"
	"strconv"

	"github.com/gorse-io/neighbors/dataset"
	"github.com/gorse-io/neighbors/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// Redis stores users in a sorted set with equal scores, so members are ordered by id,
// and the ratings of each user in a hash. User and item names live in hashes keyed by id.
type Redis struct {
	storage.TablePrefix
	client    *redis.Client
	batchSize int
}

func (r *Redis) usersKey() string {
	return r.UsersTable()
}

func (r *Redis) userNamesKey() string {
	return r.UsersTable() + "/names"
}

func (r *Redis) itemNamesKey() string {
	return r.ItemsTable()
}

func (r *Redis) ratingsKey(userId string) string {
	return r.RatingsTable() + "/" + userId
}

// Init does nothing.
func (r *Redis) Init() error {
	return nil
}

func (r *Redis) Ping() error {
	return r.client.Ping(context.Background()).Err()
}

// Close Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Purge deletes all users, items and ratings.
func (r *Redis) Purge() error {
	ctx := context.Background()
	userIds, err := r.client.ZRange(ctx, r.usersKey(), 0, -1).Result()
	if err != nil {
		return errors.Trace(err)
	}
	for _, batch := range lo.Chunk(userIds, r.batchSize) {
		keys := lo.Map(batch, func(userId string, _ int) string {
			return r.ratingsKey(userId)
		})
		if err = r.client.Del(ctx, keys...).Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(r.client.Del(ctx, r.usersKey(), r.userNamesKey(), r.itemNamesKey()).Err())
}

func (r *Redis) BatchInsertUsers(ctx context.Context, users []User) error {
	for _, batch := range lo.Chunk(mergeUsers(users), r.batchSize) {
		pipe := r.client.Pipeline()
		pipe.ZAddNX(ctx, r.usersKey(), lo.Map(batch, func(user User, _ int) redis.Z {
			return redis.Z{Member: user.UserId}
		})...)
		// unnamed users never overwrite names
		for _, user := range batch {
			if user.Name != "" {
				pipe.HSet(ctx, r.userNamesKey(), user.UserId, user.Name)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (r *Redis) BatchInsertItems(ctx context.Context, items []Item) error {
	for _, batch := range lo.Chunk(items, r.batchSize) {
		values := make([]any, 0, 2*len(batch))
		for _, item := range batch {
			values = append(values, item.ItemId, item.Name)
		}
		if err := r.client.HSet(ctx, r.itemNamesKey(), values...).Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (r *Redis) GetUserByName(ctx context.Context, name string) ([]User, error) {
	if err := validateName(name); err != nil {
		return nil, errors.Trace(err)
	}
	userIds, err := r.findByName(ctx, r.userNamesKey(), name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(userIds) == 0 {
		return nil, errors.Annotate(ErrUserNotExist, name)
	}
	return lo.Map(userIds, func(userId string, _ int) User {
		return User{UserId: userId, Name: name}
	}), nil
}

func (r *Redis) GetItemByName(ctx context.Context, name string) ([]Item, error) {
	if err := validateName(name); err != nil {
		return nil, errors.Trace(err)
	}
	itemIds, err := r.findByName(ctx, r.itemNamesKey(), name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(itemIds) == 0 {
		return nil, errors.Annotate(ErrItemNotExist, name)
	}
	return lo.Map(itemIds, func(itemId string, _ int) Item {
		return Item{ItemId: itemId, Name: name}
	}), nil
}

// findByName scans a name hash for ids with a name.
func (r *Redis) findByName(ctx context.Context, key, name string) ([]string, error) {
	names, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids := lo.Keys(lo.PickByValues(names, []string{name}))
	sort.Strings(ids)
	return ids, nil
}

func (r *Redis) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	users := lo.Map(ratings, func(rating Rating, _ int) User {
		return User{UserId: rating.UserId}
	})
	if err := r.BatchInsertUsers(ctx, users); err != nil {
		return errors.Trace(err)
	}
	for _, batch := range lo.Chunk(ratings, r.batchSize) {
		pipe := r.client.Pipeline()
		for _, rating := range batch {
			pipe.HSet(ctx, r.ratingsKey(rating.UserId), rating.ItemId, strconv.FormatFloat(rating.Rating, 'g', -1, 64))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (r *Redis) CountUsers(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.usersKey()).Result()
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int(n), nil
}

func (r *Redis) GetUserRatings(ctx context.Context, userId string) (dataset.Ratings[string], error) {
	if err := r.client.ZScore(ctx, r.usersKey(), userId).Err(); err == redis.Nil {
		return nil, errors.Annotate(ErrUserNotExist, userId)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	corpus, err := r.loadRatings(ctx, []string{userId})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return corpus[userId], nil
}

func (r *Redis) GetRatings(ctx context.Context) (dataset.Corpus[string, string], error) {
	userIds, err := r.client.ZRange(ctx, r.usersKey(), 0, -1).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	corpus := make(dataset.Corpus[string, string], len(userIds))
	for _, batch := range lo.Chunk(userIds, r.batchSize) {
		chunk, err := r.loadRatings(ctx, batch)
		if err != nil {
			return nil, errors.Trace(err)
		}
		for userId, ratings := range chunk {
			corpus[userId] = ratings
		}
	}
	return corpus, nil
}

func (r *Redis) GetRatingsChunk(ctx context.Context, offset, limit int) (dataset.Corpus[string, string], error) {
	if err := validateChunk(offset, limit); err != nil {
		return nil, errors.Trace(err)
	}
	userIds, err := r.client.ZRange(ctx, r.usersKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.loadRatings(ctx, userIds)
}

func (r *Redis) loadRatings(ctx context.Context, userIds []string) (dataset.Corpus[string, string], error) {
	corpus := make(dataset.Corpus[string, string], len(userIds))
	if len(userIds) == 0 {
		return corpus, nil
	}
	pipe := r.client.Pipeline()
	commands := lo.Map(userIds, func(userId string, _ int) *redis.MapStringStringCmd {
		return pipe.HGetAll(ctx, r.ratingsKey(userId))
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Trace(err)
	}
	for i, userId := range userIds {
		corpus.AddUser(userId)
		for itemId, value := range commands[i].Val() {
			rating, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Annotatef(err, "rating of user %s on item %s", userId, itemId)
			}
			corpus.Add(userId, itemId, rating)
		}
	}
	return corpus, nil
}
