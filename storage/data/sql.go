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
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/gorse-io/neighbors/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLUser is a row of the users table.
type SQLUser struct {
	UserId string `gorm:"column:user_id;type:varchar(256);primaryKey"`
	Name   string `gorm:"column:name;type:varchar(256);not null"`
}

// SQLItem is a row of the items table.
type SQLItem struct {
	ItemId string `gorm:"column:item_id;type:varchar(256);primaryKey"`
	Name   string `gorm:"column:name;type:varchar(256);not null"`
}

// SQLRating is a row of the ratings table.
type SQLRating struct {
	UserId string  `gorm:"column:user_id;type:varchar(256);primaryKey"`
	ItemId string  `gorm:"column:item_id;type:varchar(256);primaryKey"`
	Rating float64 `gorm:"column:rating;type:double precision;not null"`
}

// SQLDatabase stores ratings in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB    *gorm.DB
	client    *sql.DB
	driver    SQLDriver
	batchSize int
}

// Init tables and indices.
func (d *SQLDatabase) Init() error {
	switch d.driver {
	case MySQL:
		if err := d.gormDB.Set("gorm:table_options", "ENGINE=InnoDB").
			Table(d.UsersTable()).AutoMigrate(&SQLUser{}); err != nil {
			return errors.Trace(err)
		}
		if err := d.gormDB.Set("gorm:table_options", "ENGINE=InnoDB").
			Table(d.ItemsTable()).AutoMigrate(&SQLItem{}); err != nil {
			return errors.Trace(err)
		}
		if err := d.gormDB.Set("gorm:table_options", "ENGINE=InnoDB").
			Table(d.RatingsTable()).AutoMigrate(&SQLRating{}); err != nil {
			return errors.Trace(err)
		}
	case Postgres, SQLite:
		if err := d.gormDB.Table(d.UsersTable()).AutoMigrate(&SQLUser{}); err != nil {
			return errors.Trace(err)
		}
		if err := d.gormDB.Table(d.ItemsTable()).AutoMigrate(&SQLItem{}); err != nil {
			return errors.Trace(err)
		}
		if err := d.gormDB.Table(d.RatingsTable()).AutoMigrate(&SQLRating{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return d.client.Ping()
}

// Close the connection.
func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge deletes all users, items and ratings.
func (d *SQLDatabase) Purge() error {
	session := d.gormDB.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := session.Table(d.RatingsTable()).Delete(&SQLRating{}).Error; err != nil {
		return errors.Trace(err)
	}
	if err := session.Table(d.ItemsTable()).Delete(&SQLItem{}).Error; err != nil {
		return errors.Trace(err)
	}
	if err := session.Table(d.UsersTable()).Delete(&SQLUser{}).Error; err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) BatchInsertUsers(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	rows := lo.Map(mergeUsers(users), func(user User, _ int) SQLUser {
		return SQLUser{UserId: user.UserId, Name: user.Name}
	})
	// unnamed users never overwrite names
	named, unnamed := lo.FilterReject(rows, func(user SQLUser, _ int) bool {
		return user.Name != ""
	})
	for _, batch := range lo.Chunk(named, d.batchSize) {
		if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name"}),
			}).
			Create(&batch).Error; err != nil {
			return errors.Trace(err)
		}
	}
	for _, batch := range lo.Chunk(unnamed, d.batchSize) {
		if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&batch).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) BatchInsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	// the last name of an item wins
	names := make(map[string]string, len(items))
	for _, item := range items {
		names[item.ItemId] = item.Name
	}
	rows := lo.Map(lo.Uniq(lo.Map(items, func(item Item, _ int) string {
		return item.ItemId
	})), func(itemId string, _ int) SQLItem {
		return SQLItem{ItemId: itemId, Name: names[itemId]}
	})
	for _, batch := range lo.Chunk(rows, d.batchSize) {
		if err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "item_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name"}),
			}).
			Create(&batch).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	// insert users
	users := lo.Map(ratings, func(rating Rating, _ int) User {
		return User{UserId: rating.UserId}
	})
	if err := d.BatchInsertUsers(ctx, users); err != nil {
		return errors.Trace(err)
	}
	// the last rating of a pair wins
	rows := make(map[lo.Tuple2[string, string]]SQLRating, len(ratings))
	keys := make([]lo.Tuple2[string, string], 0, len(ratings))
	for _, rating := range ratings {
		key := lo.Tuple2[string, string]{A: rating.UserId, B: rating.ItemId}
		if _, exist := rows[key]; !exist {
			keys = append(keys, key)
		}
		rows[key] = SQLRating{UserId: rating.UserId, ItemId: rating.ItemId, Rating: rating.Rating}
	}
	for _, batchKeys := range lo.Chunk(keys, d.batchSize) {
		batch := lo.Map(batchKeys, func(key lo.Tuple2[string, string], _ int) SQLRating {
			return rows[key]
		})
		if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"rating"}),
			}).
			Create(&batch).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) CountUsers(ctx context.Context) (int, error) {
	var count int64
	if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).Count(&count).Error; err != nil {
		return 0, errors.Trace(err)
	}
	return int(count), nil
}

func (d *SQLDatabase) GetUserByName(ctx context.Context, name string) ([]User, error) {
	if err := validateName(name); err != nil {
		return nil, errors.Trace(err)
	}
	var rows []SQLUser
	if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).
		Where("name = ?", name).Order("user_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	if len(rows) == 0 {
		return nil, errors.Annotate(ErrUserNotExist, name)
	}
	return lo.Map(rows, func(row SQLUser, _ int) User {
		return User{UserId: row.UserId, Name: row.Name}
	}), nil
}

func (d *SQLDatabase) GetItemByName(ctx context.Context, name string) ([]Item, error) {
	if err := validateName(name); err != nil {
		return nil, errors.Trace(err)
	}
	var rows []SQLItem
	if err := d.gormDB.WithContext(ctx).Table(d.ItemsTable()).
		Where("name = ?", name).Order("item_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	if len(rows) == 0 {
		return nil, errors.Annotate(ErrItemNotExist, name)
	}
	return lo.Map(rows, func(row SQLItem, _ int) Item {
		return Item{ItemId: row.ItemId, Name: row.Name}
	}), nil
}

func (d *SQLDatabase) GetUserRatings(ctx context.Context, userId string) (dataset.Ratings[string], error) {
	var count int64
	if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).
		Where("user_id = ?", userId).Count(&count).Error; err != nil {
		return nil, errors.Trace(err)
	}
	if count == 0 {
		return nil, errors.Annotate(ErrUserNotExist, userId)
	}
	var rows []SQLRating
	if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Where("user_id = ?", userId).Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	ratings := make(dataset.Ratings[string], len(rows))
	for _, row := range rows {
		ratings[row.ItemId] = row.Rating
	}
	return ratings, nil
}

func (d *SQLDatabase) GetRatings(ctx context.Context) (dataset.Corpus[string, string], error) {
	var users []SQLUser
	if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).Find(&users).Error; err != nil {
		return nil, errors.Trace(err)
	}
	corpus := make(dataset.Corpus[string, string], len(users))
	for _, user := range users {
		corpus.AddUser(user.UserId)
	}
	rows, err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Select("user_id, item_id, rating").Rows()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	for rows.Next() {
		var row SQLRating
		if err = d.gormDB.ScanRows(rows, &row); err != nil {
			return nil, errors.Trace(err)
		}
		corpus.Add(row.UserId, row.ItemId, row.Rating)
	}
	return corpus, errors.Trace(rows.Err())
}

func (d *SQLDatabase) GetRatingsChunk(ctx context.Context, offset, limit int) (dataset.Corpus[string, string], error) {
	if err := validateChunk(offset, limit); err != nil {
		return nil, errors.Trace(err)
	}
	var users []SQLUser
	if err := d.gormDB.WithContext(ctx).Table(d.UsersTable()).
		Order("user_id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, errors.Trace(err)
	}
	corpus := make(dataset.Corpus[string, string], len(users))
	if len(users) == 0 {
		return corpus, nil
	}
	userIds := lo.Map(users, func(user SQLUser, _ int) string {
		return user.UserId
	})
	for _, userId := range userIds {
		corpus.AddUser(userId)
	}
	var rows []SQLRating
	if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).
		Where("user_id IN ?", userIds).Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	for _, row := range rows {
		corpus.Add(row.UserId, row.ItemId, row.Rating)
	}
	return corpus, nil
}
