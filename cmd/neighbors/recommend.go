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
	"math"
	"os"

	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/logics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var predictCmd = &cobra.Command{
	Use:   "predict <user> <item>",
	Short: "Predict the rating of a user on an item",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		database := openDatabase(cfg)
		defer database.Close()
		recommender, err := logics.NewRecommender(cfg, database)
		if err != nil {
			log.Logger().Fatal("failed to create recommender", zap.Error(err))
		}
		rating, ok, err := recommender.Predict(cmd.Context(), args[0], args[1])
		if err != nil {
			log.Logger().Fatal("failed to predict", zap.Error(err))
		}
		if !ok {
			rating = math.NaN()
		}
		if err = renderPairs(os.Stdout, []string{"user", "item", "rating"},
			[][]string{{args[0], args[1], formatScore(rating)}}); err != nil {
			log.Logger().Fatal("failed to render", zap.Error(err))
		}
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <user>",
	Short: "Recommend items rated by neighbors",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		database := openDatabase(cfg)
		defer database.Close()
		recommender, err := logics.NewRecommender(cfg, database)
		if err != nil {
			log.Logger().Fatal("failed to create recommender", zap.Error(err))
		}
		recommendations, err := recommender.Recommend(cmd.Context(), args[0])
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.String("user_id", args[0]), zap.Error(err))
		}
		if err = renderScores(os.Stdout, []string{"#", "item", "score"}, recommendations); err != nil {
			log.Logger().Fatal("failed to render", zap.Error(err))
		}
	},
}

func init() {
	addNeighborsFlags(predictCmd.Flags())
	addNeighborsFlags(recommendCmd.Flags())
	recommendCmd.Flags().IntP("n", "n", 0, "Number of recommendations")
	rootCmd.AddCommand(predictCmd, recommendCmd)
}
