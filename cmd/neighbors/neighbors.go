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
	"context"
	"os"

	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/common/similarity"
	"github.com/gorse-io/neighbors/logics"
	"github.com/gorse-io/neighbors/storage/data"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var distanceCmd = &cobra.Command{
	Use:   "distance <user1> <user2>",
	Short: "Score two users with a metric",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		byName, _ := cmd.Flags().GetBool("by-name")
		database := openDatabase(cfg)
		defer database.Close()
		var userIds [2][]string
		for i, arg := range args {
			ids, err := resolveUsers(cmd.Context(), database, arg, byName)
			if err != nil {
				log.Logger().Fatal("failed to resolve user", zap.String("user", arg), zap.Error(err))
			}
			userIds[i] = ids
		}
		rows, err := distanceRows(cmd.Context(), database, cfg.Neighbors.Metric, userIds[0], userIds[1])
		if err != nil {
			log.Logger().Fatal("failed to score users", zap.Error(err))
		}
		if err = renderPairs(os.Stdout, []string{"user", "user", "metric", "polarity", "score"}, rows); err != nil {
			log.Logger().Fatal("failed to render", zap.Error(err))
		}
	},
}

// distanceRows scores every pair drawn from two lists of users.
func distanceRows(ctx context.Context, database data.Database, metric similarity.Metric, left, right []string) ([][]string, error) {
	var rows [][]string
	for _, a := range left {
		ratingsA, err := database.GetUserRatings(ctx, a)
		if err != nil {
			return nil, errors.Annotatef(err, "user %s", a)
		}
		for _, b := range right {
			ratingsB, err := database.GetUserRatings(ctx, b)
			if err != nil {
				return nil, errors.Annotatef(err, "user %s", b)
			}
			rows = append(rows, []string{a, b,
				metric.String(),
				metric.Polarity().String(),
				formatScore(similarity.Score(metric, ratingsA, ratingsB)),
			})
		}
	}
	return rows, nil
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <user>",
	Short: "Find the nearest neighbors of a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		byName, _ := cmd.Flags().GetBool("by-name")
		database := openDatabase(cfg)
		defer database.Close()
		userIds, err := resolveUsers(cmd.Context(), database, args[0], byName)
		if err != nil {
			log.Logger().Fatal("failed to resolve user", zap.String("user", args[0]), zap.Error(err))
		}
		userToUser, err := logics.NewUserToUser(cfg.Neighbors)
		if err != nil {
			log.Logger().Fatal("failed to create neighbor search", zap.Error(err))
		}
		n, err := database.CountUsers(cmd.Context())
		if err != nil {
			log.Logger().Fatal("failed to count users", zap.Error(err))
		}
		var rows [][]string
		for _, userId := range userIds {
			bar := progressbar.Default(int64(n), "Scanning users for "+userId)
			userToUser.SetProgress(func(users int) {
				_ = bar.Add(users)
			})
			neighbors, err := userToUser.FindNeighbors(cmd.Context(), database, userId)
			if err != nil {
				log.Logger().Fatal("failed to find neighbors", zap.String("user_id", userId), zap.Error(err))
			}
			_ = bar.Finish()
			for _, row := range scoreRows(neighbors) {
				rows = append(rows, append([]string{userId}, row...))
			}
		}
		if err = renderPairs(os.Stdout, []string{"target", "#", "user", cfg.Neighbors.Metric.String()}, rows); err != nil {
			log.Logger().Fatal("failed to render", zap.Error(err))
		}
	},
}

func init() {
	distanceCmd.Flags().StringP("metric", "m", "", "Similarity metric (euclidean, manhattan, minkowski:<g>, pearson, cosine, jaccard_distance, jaccard_index)")
	addNeighborsFlags(neighborsCmd.Flags())
	addByNameFlag(distanceCmd)
	addByNameFlag(neighborsCmd)
	rootCmd.AddCommand(distanceCmd, neighborsCmd)
}
