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

package config

import (
	"reflect"

	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the engine.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Neighbors  NeighborsConfig  `mapstructure:"neighbors"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
	ItemToItem ItemToItemConfig `mapstructure:"item_to_item"`
}

// DatabaseConfig is the configuration for the rating store.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required,data_store"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// NeighborsConfig is the configuration for user-to-user neighbor search.
type NeighborsConfig struct {
	K      int               `mapstructure:"k" validate:"gt=0"`
	Metric similarity.Metric `mapstructure:"metric"`
	// ChunkSize is the number of users loaded at a time. Zero loads all users at once.
	ChunkSize int `mapstructure:"chunk_size" validate:"gte=0"`
	Jobs      int `mapstructure:"jobs" validate:"gt=0"`
}

// RecommendConfig is the configuration for neighbor-based recommendation.
type RecommendConfig struct {
	TopN      int  `mapstructure:"top_n" validate:"gt=0"`
	Normalize bool `mapstructure:"normalize"`
}

// ItemToItemConfig is the configuration for the item similarity matrix.
type ItemToItemConfig struct {
	Jobs int `mapstructure:"jobs" validate:"gt=0"`
	TopN int `mapstructure:"top_n" validate:"gt=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "sqlite://neighbors.db",
		},
		Neighbors: NeighborsConfig{
			K:         10,
			Metric:    similarity.Metric{Kind: similarity.Pearson},
			ChunkSize: 1000,
			Jobs:      1,
		},
		Recommend: RecommendConfig{
			TopN: 10,
		},
		ItemToItem: ItemToItemConfig{
			Jobs: 1,
			TopN: 10,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [neighbors]
	v.SetDefault("neighbors.k", defaultConfig.Neighbors.K)
	v.SetDefault("neighbors.metric", defaultConfig.Neighbors.Metric.String())
	v.SetDefault("neighbors.chunk_size", defaultConfig.Neighbors.ChunkSize)
	v.SetDefault("neighbors.jobs", defaultConfig.Neighbors.Jobs)
	// [recommend]
	v.SetDefault("recommend.top_n", defaultConfig.Recommend.TopN)
	v.SetDefault("recommend.normalize", defaultConfig.Recommend.Normalize)
	// [item_to_item]
	v.SetDefault("item_to_item.jobs", defaultConfig.ItemToItem.Jobs)
	v.SetDefault("item_to_item.top_n", defaultConfig.ItemToItem.TopN)
}

type configBinding struct {
	key string
	env string
}

func bindEnv(v *viper.Viper) error {
	bindings := []configBinding{
		{"database.data_store", "NEIGHBORS_DATA_STORE"},
		{"database.table_prefix", "NEIGHBORS_TABLE_PREFIX"},
		{"neighbors.k", "NEIGHBORS_K"},
		{"neighbors.metric", "NEIGHBORS_METRIC"},
		{"neighbors.chunk_size", "NEIGHBORS_CHUNK_SIZE"},
		{"neighbors.jobs", "NEIGHBORS_JOBS"},
		{"recommend.top_n", "NEIGHBORS_RECOMMEND_TOP_N"},
		{"recommend.normalize", "NEIGHBORS_RECOMMEND_NORMALIZE"},
		{"item_to_item.jobs", "NEIGHBORS_ITEM_TO_ITEM_JOBS"},
		{"item_to_item.top_n", "NEIGHBORS_ITEM_TO_ITEM_TOP_N"},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// stringToMetricHookFunc decodes metric names such as "minkowski:3".
func stringToMetricHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(similarity.Metric{}) {
			return data, nil
		}
		return similarity.ParseMetric(data.(string))
	}
}

// LoadConfig loads configuration from a TOML file and environment variables. An empty path
// loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	if err := bindEnv(v); err != nil {
		return nil, errors.Trace(err)
	}
	if path != "" {
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var config Config
	if err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToMetricHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}
