// Copyright 2025 gorse Project Authors
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

package main

import (
	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/gorse-io/neighbors/config"
	"github.com/gorse-io/neighbors/storage/data"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Nearest neighbor recommendations over a rating store",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Use debug log mode")
	log.AddFlags(rootCmd.PersistentFlags())
}

// loadConfig loads the configuration file and applies command line overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	if err = overrideConfig(cmd.Flags(), cfg); err != nil {
		log.Logger().Fatal("invalid flags", zap.Error(err))
	}
	return cfg
}

// overrideConfig copies flags set on the command line into the configuration.
func overrideConfig(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("k") {
		cfg.Neighbors.K, _ = flags.GetInt("k")
	}
	if flags.Changed("metric") {
		name, _ := flags.GetString("metric")
		metric, err := similarity.ParseMetric(name)
		if err != nil {
			return errors.Trace(err)
		}
		cfg.Neighbors.Metric = metric
	}
	if flags.Changed("chunk-size") {
		cfg.Neighbors.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("jobs") {
		jobs, _ := flags.GetInt("jobs")
		cfg.Neighbors.Jobs = jobs
		cfg.ItemToItem.Jobs = jobs
	}
	if flags.Changed("n") {
		n, _ := flags.GetInt("n")
		cfg.Recommend.TopN = n
		cfg.ItemToItem.TopN = n
	}
	return cfg.Validate()
}

// addNeighborsFlags registers flags overriding the neighbors section of the configuration.
func addNeighborsFlags(flags *pflag.FlagSet) {
	flags.IntP("k", "k", 0, "Number of neighbors")
	flags.StringP("metric", "m", "", "Similarity metric (euclidean, manhattan, minkowski:<g>, pearson, cosine, jaccard_distance, jaccard_index)")
	flags.Int("chunk-size", 0, "Number of users loaded per chunk (0 loads all users at once)")
	flags.IntP("jobs", "j", 0, "Number of concurrent jobs")
}

func openDatabase(cfg *config.Config) data.Database {
	database, err := data.Open(cfg.Database.DataStore, cfg.Database.TablePrefix)
	if err != nil {
		log.Logger().Fatal("failed to open data store", zap.Error(err),
			zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)))
	}
	log.Logger().Debug("open data store", zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)))
	return data.WithMetrics(database)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
