// Copyright 2022 gorse Project Authors
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

package storage

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestAppendURLParams(t *testing.T) {
	url, err := AppendURLParams(`sqlite://neighbors.db`, []lo.Tuple2[string, string]{
		{"_pragma", "busy_timeout(10000)"},
		{"_pragma", "journal_mode(wal)"},
	})
	assert.NoError(t, err)
	assert.Equal(t, `sqlite://neighbors.db?_pragma=busy_timeout%2810000%29&_pragma=journal_mode%28wal%29`, url)

	url, err = AppendURLParams(`sqlite.db`, []lo.Tuple2[string, string]{{"a", "b"}})
	assert.NoError(t, err)
	assert.Equal(t, `sqlite.db?a=b`, url)
}

func TestAppendMySQLParams(t *testing.T) {
	dsn, err := AppendMySQLParams("root:password@tcp(127.0.0.1:3306)/neighbors?parseTime=false", map[string]string{
		"parseTime": "true",
		"sql_mode":  "'STRICT_TRANS_TABLES'",
	})
	assert.NoError(t, err)
	cfg, err := mysql.ParseDSN(dsn)
	assert.NoError(t, err)
	assert.Equal(t, "neighbors", cfg.DBName)
	assert.False(t, cfg.ParseTime)
	assert.Equal(t, "'STRICT_TRANS_TABLES'", cfg.Params["sql_mode"])

	_, err = AppendMySQLParams("root:password@tcp(127.0.0.1:3306", nil)
	assert.Error(t, err)
}

func TestTablePrefix(t *testing.T) {
	prefix := TablePrefix("nb_")
	assert.Equal(t, "nb_users", prefix.UsersTable())
	assert.Equal(t, "nb_items", prefix.ItemsTable())
	assert.Equal(t, "nb_ratings", prefix.RatingsTable())
	assert.Equal(t, "nb_users/1", prefix.Key("users/1"))
	assert.Equal(t, "ratings", TablePrefix("").RatingsTable())
}

func TestNewOptions(t *testing.T) {
	opt := NewOptions()
	assert.Equal(t, 1000, opt.BatchSize)
	opt = NewOptions(WithMaxOpenConns(8), WithMaxIdleConns(4), WithConnMaxLifetime(time.Minute), WithBatchSize(-1))
	assert.Equal(t, Options{MaxOpenConns: 8, MaxIdleConns: 4, ConnMaxLifetime: time.Minute, BatchSize: 1000}, opt)
}
