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

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/gorse-io/neighbors/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoEntity struct {
	Id   string `bson:"_id"`
	Name string `bson:"name"`
}

type mongoRating struct {
	UserId string  `bson:"user_id"`
	ItemId string  `bson:"item_id"`
	Rating float64 `bson:"rating"`
}

// MongoDB is the data storage based on MongoDB.
type MongoDB struct {
	storage.TablePrefix
	client    *mongo.Client
	dbName    string
	batchSize int
}

// Init collections and indices in MongoDB.
func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	existed := mapset.NewSet(collections...)
	// create collections
	for _, name := range []string{db.UsersTable(), db.ItemsTable(), db.RatingsTable()} {
		if !existed.Contains(name) {
			if err = d.CreateCollection(ctx, name); err != nil {
				return errors.Trace(err)
			}
		}
	}
	// create index
	_, err = d.Collection(db.RatingsTable()).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{"user_id", 1}, {"item_id", 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return errors.Trace(err)
	}
	for _, name := range []string{db.UsersTable(), db.ItemsTable()} {
		if _, err = d.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{"name", 1}, {"_id", 1}},
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) Ping() error {
	return db.client.Ping(context.Background(), nil)
}

// Close connection.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

// Purge deletes all users, items and ratings.
func (db *MongoDB) Purge() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	for _, name := range []string{db.UsersTable(), db.ItemsTable(), db.RatingsTable()} {
		if _, err := d.Collection(name).DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) BatchInsertUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.UsersTable())
	for _, batch := range lo.Chunk(mergeUsers(users), db.batchSize) {
		var models []mongo.WriteModel
		for _, user := range batch {
			// unnamed users never overwrite names
			update := bson.M{"$setOnInsert": bson.M{"name": ""}}
			if user.Name != "" {
				update = bson.M{"$set": bson.M{"name": user.Name}}
			}
			models = append(models, mongo.NewUpdateOneModel().
				SetUpsert(true).
				SetFilter(bson.M{"_id": user.UserId}).
				SetUpdate(update))
		}
		if _, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) BatchInsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	// ordered writes keep the last name of an item
	c := db.client.Database(db.dbName).Collection(db.ItemsTable())
	for _, batch := range lo.Chunk(items, db.batchSize) {
		var models []mongo.WriteModel
		for _, item := range batch {
			models = append(models, mongo.NewUpdateOneModel().
				SetUpsert(true).
				SetFilter(bson.M{"_id": item.ItemId}).
				SetUpdate(bson.M{"$set": bson.M{"name": item.Name}}))
		}
		if _, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) GetUserByName(ctx context.Context, name string) ([]User, error) {
	if err := validateName(name); err != nil {
		return nil, errors.Trace(err)
	}
	entities, err := db.findByName(ctx, db.UsersTable(), name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(entities) == 0 {
		return nil, errors.Annotate(ErrUserNotExist, name)
	}
	return lo.Map(entities, func(entity mongoEntity, _ int) User {
		return User{UserId: entity.Id, Name: entity.Name}
	}), nil
}

func (db *MongoDB) GetItemByName(ctx context.Context, name string) ([]Item, error) {
	if err := validateName(name); err != nil {
		return nil, errors.Trace(err)
	}
	entities, err := db.findByName(ctx, db.ItemsTable(), name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(entities) == 0 {
		return nil, errors.Annotate(ErrItemNotExist, name)
	}
	return lo.Map(entities, func(entity mongoEntity, _ int) Item {
		return Item{ItemId: entity.Id, Name: entity.Name}
	}), nil
}

func (db *MongoDB) findByName(ctx context.Context, collection, name string) ([]mongoEntity, error) {
	r, err := db.client.Database(db.dbName).Collection(collection).
		Find(ctx, bson.M{"name": name}, options.Find().SetSort(bson.D{{"_id", 1}}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	var entities []mongoEntity
	if err = r.All(ctx, &entities); err != nil {
		return nil, errors.Trace(err)
	}
	return entities, nil
}

func (db *MongoDB) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	// insert users
	users := lo.Map(lo.Uniq(lo.Map(ratings, func(rating Rating, _ int) string {
		return rating.UserId
	})), func(userId string, _ int) User {
		return User{UserId: userId}
	})
	if err := db.BatchInsertUsers(ctx, users); err != nil {
		return errors.Trace(err)
	}
	// ordered writes keep the last rating of a pair
	c := db.client.Database(db.dbName).Collection(db.RatingsTable())
	for _, batch := range lo.Chunk(ratings, db.batchSize) {
		var models []mongo.WriteModel
		for _, rating := range batch {
			models = append(models, mongo.NewUpdateOneModel().
				SetUpsert(true).
				SetFilter(bson.M{"user_id": rating.UserId, "item_id": rating.ItemId}).
				SetUpdate(bson.M{"$set": bson.M{"rating": rating.Rating}}))
		}
		if _, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) CountUsers(ctx context.Context) (int, error) {
	n, err := db.client.Database(db.dbName).Collection(db.UsersTable()).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, errors.Trace(err)
	}
	return int(n), nil
}

func (db *MongoDB) GetUserRatings(ctx context.Context, userId string) (dataset.Ratings[string], error) {
	d := db.client.Database(db.dbName)
	n, err := d.Collection(db.UsersTable()).CountDocuments(ctx, bson.M{"_id": userId})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if n == 0 {
		return nil, errors.Annotate(ErrUserNotExist, userId)
	}
	corpus := make(dataset.Corpus[string, string])
	corpus.AddUser(userId)
	if err = db.loadRatings(ctx, corpus, bson.M{"user_id": userId}); err != nil {
		return nil, errors.Trace(err)
	}
	return corpus[userId], nil
}

func (db *MongoDB) GetRatings(ctx context.Context) (dataset.Corpus[string, string], error) {
	userIds, err := db.loadUsers(ctx, options.Find())
	if err != nil {
		return nil, errors.Trace(err)
	}
	corpus := make(dataset.Corpus[string, string], len(userIds))
	for _, userId := range userIds {
		corpus.AddUser(userId)
	}
	if err = db.loadRatings(ctx, corpus, bson.M{}); err != nil {
		return nil, errors.Trace(err)
	}
	return corpus, nil
}

func (db *MongoDB) GetRatingsChunk(ctx context.Context, offset, limit int) (dataset.Corpus[string, string], error) {
	if err := validateChunk(offset, limit); err != nil {
		return nil, errors.Trace(err)
	}
	userIds, err := db.loadUsers(ctx, options.Find().
		SetSort(bson.D{{"_id", 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, errors.Trace(err)
	}
	corpus := make(dataset.Corpus[string, string], len(userIds))
	if len(userIds) == 0 {
		return corpus, nil
	}
	for _, userId := range userIds {
		corpus.AddUser(userId)
	}
	if err = db.loadRatings(ctx, corpus, bson.M{"user_id": bson.M{"$in": userIds}}); err != nil {
		return nil, errors.Trace(err)
	}
	return corpus, nil
}

func (db *MongoDB) loadUsers(ctx context.Context, opts *options.FindOptions) ([]string, error) {
	r, err := db.client.Database(db.dbName).Collection(db.UsersTable()).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	var userIds []string
	for r.Next(ctx) {
		var doc struct {
			UserId string `bson:"_id"`
		}
		if err = r.Decode(&doc); err != nil {
			return nil, errors.Trace(err)
		}
		userIds = append(userIds, doc.UserId)
	}
	return userIds, errors.Trace(r.Err())
}

func (db *MongoDB) loadRatings(ctx context.Context, corpus dataset.Corpus[string, string], filter bson.M) error {
	r, err := db.client.Database(db.dbName).Collection(db.RatingsTable()).Find(ctx, filter)
	if err != nil {
		return errors.Trace(err)
	}
	defer r.Close(ctx)
	for r.Next(ctx) {
		var rating mongoRating
		if err = r.Decode(&rating); err != nil {
			return errors.Trace(err)
		}
		corpus.Add(rating.UserId, rating.ItemId, rating.Rating)
	}
	return errors.Trace(r.Err())
}
