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
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/gorse-io/neighbors/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var (
	ErrUserNotExist = errors.NotFoundf("user")
	ErrItemNotExist = errors.NotFoundf("item")
	ErrNoDatabase   = errors.NotAssignedf("database")
)

// User is a rater. Users may exist without ratings. Names are optional and need not be unique.
type User struct {
	UserId string
	Name   string
}

// Item is a rated object with an optional display name.
type Item struct {
	ItemId string
	Name   string
}

// Rating is the score a user gave to an item.
type Rating struct {
	UserId string
	ItemId string
	Rating float64
}

type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	// BatchInsertUsers inserts users. Existing users are kept, but a non-empty name replaces
	// the stored one.
	BatchInsertUsers(ctx context.Context, users []User) error
	// BatchInsertItems inserts items or replaces their names.
	BatchInsertItems(ctx context.Context, items []Item) error
	// BatchInsertRatings inserts or overwrites ratings and creates missing users.
	BatchInsertRatings(ctx context.Context, ratings []Rating) error
	CountUsers(ctx context.Context) (int, error)
	// GetUserByName returns users with a name in ascending id order, or ErrUserNotExist.
	GetUserByName(ctx context.Context, name string) ([]User, error)
	// GetItemByName returns items with a name in ascending id order, or ErrItemNotExist.
	GetItemByName(ctx context.Context, name string) ([]Item, error)
	// GetUserRatings returns ErrUserNotExist if the user has never been inserted.
	GetUserRatings(ctx context.Context, userId string) (dataset.Ratings[string], error)
	GetRatings(ctx context.Context) (dataset.Corpus[string, string], error)
	// GetRatingsChunk returns at most limit users in ascending id order starting at offset.
	// Users without ratings appear with empty vectors.
	GetRatingsChunk(ctx context.Context, offset, limit int) (dataset.Corpus[string, string], error)
}

func validateName(name string) error {
	if name == "" {
		return errors.NotValidf("empty name")
	}
	return nil
}

// mergeUsers drops duplicate users. A later non-empty name replaces an earlier one.
func mergeUsers(users []User) []User {
	merged := make([]User, 0, len(users))
	index := make(map[string]int, len(users))
	for _, user := range users {
		if i, exist := index[user.UserId]; !exist {
			index[user.UserId] = len(merged)
			merged = append(merged, user)
		} else if user.Name != "" {
			merged[i].Name = user.Name
		}
	}
	return merged
}

func validateChunk(offset, limit int) error {
	if offset < 0 {
		return errors.NotValidf("offset %d", offset)
	}
	if limit <= 0 {
		return errors.NotValidf("limit %d", limit)
	}
	return nil
}

func sqlOpenOptions(system string) []otelsql.Option {
	return []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", system)),
		otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
	}
}

// Open a connection to a database. An empty path opens NoDatabase.
func Open(path, tablePrefix string, opts ...storage.Option) (Database, error) {
	var err error
	option := storage.NewOptions(opts...)
	log.Logger().Debug("open database", zap.String("path", log.RedactDBURL(path)))
	if path == "" {
		return NoDatabase{}, nil
	} else if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		// detect isolation variable name
		isolationVarName, err := storage.DetectMySQLIsolationVariableName(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		// append parameters
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"sql_mode":       "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
			isolationVarName: "'READ-UNCOMMITTED'",
			"parseTime":      "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		database := new(SQLDatabase)
		database.driver = MySQL
		database.batchSize = option.BatchSize
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("mysql", name, sqlOpenOptions("mysql")...); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.batchSize = option.BatchSize
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("postgres", path, sqlOpenOptions("postgresql")...); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.MongoPrefix) || strings.HasPrefix(path, storage.MongoSrvPrefix) {
		// connect to database
		database := new(MongoDB)
		database.batchSize = option.BatchSize
		opts := options.Client()
		opts.Monitor = otelmongo.NewMonitor()
		opts.ApplyURI(path)
		if database.client, err = mongo.Connect(context.Background(), opts); err != nil {
			return nil, errors.Trace(err)
		}
		// parse DSN and extract database name
		if cs, err := connstring.ParseAndValidate(path); err != nil {
			return nil, errors.Trace(err)
		} else {
			database.dbName = cs.Database
			database.TablePrefix = storage.TablePrefix(tablePrefix)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		// append parameters
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{"_pragma", "busy_timeout(10000)"},
			{"_pragma", "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.batchSize = option.BatchSize
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("sqlite", name, sqlOpenOptions("sqlite")...); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		database.batchSize = option.BatchSize
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			log.Logger().Error("failed to add tracing for redis", zap.Error(err))
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}
