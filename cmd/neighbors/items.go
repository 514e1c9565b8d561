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
	"os"

	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/config"
	"github.com/gorse-io/neighbors/logics"
	"github.com/gorse-io/neighbors/storage/data"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func buildMatrix(cmd *cobra.Command, cfg *config.Config, database data.Database) *logics.ItemSimilarityMatrix[string] {
	corpus, err := database.GetRatings(cmd.Context())
	if err != nil {
		log.Logger().Fatal("failed to load ratings", zap.Error(err))
	}
	matrix, err := logics.BuildItemSimilarityMatrix(cmd.Context(), corpus, cfg.ItemToItem.Jobs)
	if err != nil {
		log.Logger().Fatal("failed to build item similarity matrix", zap.Error(err))
	}
	log.Logger().Info("build item similarity matrix", zap.Int("n_items", len(matrix.Order)))
	return matrix
}

var similarityCmd = &cobra.Command{
	Use:   "similarity <item1> <item2>",
	Short: "Adjusted cosine similarity between two items",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		byName, _ := cmd.Flags().GetBool("by-name")
		database := openDatabase(cfg)
		defer database.Close()
		var itemIds [2]string
		for i, arg := range args {
			itemId, err := resolveItem(cmd.Context(), database, arg, byName)
			if err != nil {
				log.Logger().Fatal("failed to resolve item", zap.String("item", arg), zap.Error(err))
			}
			itemIds[i] = itemId
		}
		matrix := buildMatrix(cmd, cfg, database)
		score, err := matrix.Between(itemIds[0], itemIds[1])
		if err != nil {
			log.Logger().Fatal("failed to look up similarity", zap.Error(err))
		}
		if err = renderPairs(os.Stdout, []string{"item", "item", "similarity"},
			[][]string{{itemIds[0], itemIds[1], formatScore(score)}}); err != nil {
			log.Logger().Fatal("failed to render", zap.Error(err))
		}
	},
}

var similarItemsCmd = &cobra.Command{
	Use:   "similar-items <item>",
	Short: "Find the items most similar to an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		database := openDatabase(cfg)
		defer database.Close()
		matrix := buildMatrix(cmd, cfg, database)
		items, err := matrix.MostSimilar(args[0], cfg.ItemToItem.TopN)
		if err != nil {
			log.Logger().Fatal("failed to find similar items", zap.String("item_id", args[0]), zap.Error(err))
		}
		if err = renderScores(os.Stdout, []string{"#", "item", "similarity"}, items); err != nil {
			log.Logger().Fatal("failed to render", zap.Error(err))
		}
	},
}

func init() {
	for _, cmd := range []*cobra.Command{similarityCmd, similarItemsCmd} {
		cmd.Flags().IntP("jobs", "j", 0, "Number of concurrent jobs")
	}
	similarItemsCmd.Flags().IntP("n", "n", 0, "Number of similar items")
	addByNameFlag(similarityCmd)
	rootCmd.AddCommand(similarityCmd, similarItemsCmd)
}
