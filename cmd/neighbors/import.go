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
	"io"
	"os"
	"sort"

	"github.com/gorse-io/neighbors/common/log"
	"github.com/gorse-io/neighbors/dataset"
	"github.com/gorse-io/neighbors/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const importBatchSize = 1000

var importCmd = &cobra.Command{
	Use:   "import [ratings.csv]",
	Short: "Import user,item,rating rows and id,name rows into the data store",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		sep, _ := cmd.Flags().GetString("sep")
		header, _ := cmd.Flags().GetBool("header")
		usersPath, _ := cmd.Flags().GetString("users")
		itemsPath, _ := cmd.Flags().GetString("items")
		if len(args) == 0 && usersPath == "" && itemsPath == "" {
			log.Logger().Fatal("nothing to import")
		}

		var corpus dataset.Corpus[string, string]
		if len(args) > 0 {
			err := readFile(args[0], "Reading ratings", func(r io.Reader) (err error) {
				corpus, err = dataset.LoadRatings(r, sep, header)
				return
			})
			if err != nil {
				log.Logger().Fatal("failed to load ratings", zap.Error(err))
			}
		}
		var userNames, itemNames map[string]string
		if usersPath != "" {
			err := readFile(usersPath, "Reading users", func(r io.Reader) (err error) {
				userNames, err = dataset.LoadNames(r, sep, header)
				return
			})
			if err != nil {
				log.Logger().Fatal("failed to load user names", zap.Error(err))
			}
		}
		if itemsPath != "" {
			err := readFile(itemsPath, "Reading items", func(r io.Reader) (err error) {
				itemNames, err = dataset.LoadNames(r, sep, header)
				return
			})
			if err != nil {
				log.Logger().Fatal("failed to load item names", zap.Error(err))
			}
		}

		database := openDatabase(cfg)
		defer database.Close()
		if err := database.Init(); err != nil {
			log.Logger().Fatal("failed to init data store", zap.Error(err))
		}
		if err := importNames(cmd.Context(), database, userNames, itemNames); err != nil {
			log.Logger().Fatal("failed to import names", zap.Error(err))
		}
		if err := importRatings(cmd.Context(), database, corpus, os.Stderr); err != nil {
			log.Logger().Fatal("failed to import ratings", zap.Error(err))
		}
		log.Logger().Info("import data",
			zap.Int("n_users", len(corpus)),
			zap.Int("n_ratings", corpus.CountRatings()),
			zap.Int("n_user_names", len(userNames)),
			zap.Int("n_item_names", len(itemNames)))
	},
}

func init() {
	importCmd.Flags().String("sep", ",", "Field separator")
	importCmd.Flags().Bool("header", false, "Skip the first line")
	importCmd.Flags().String("users", "", "Path to user_id,name rows")
	importCmd.Flags().String("items", "", "Path to item_id,name rows")
	rootCmd.AddCommand(importCmd)
}

// readFile passes a file wrapped in a byte progress bar to load.
func readFile(path, description string, load func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return errors.Trace(err)
	}
	pbReader := progressbar.NewReader(file, progressbar.DefaultBytes(stat.Size(), description))
	return errors.Annotate(load(&pbReader), path)
}

// importNames inserts named users and items. Names of existing rows are replaced.
func importNames(ctx context.Context, database data.Database, userNames, itemNames map[string]string) error {
	users := lo.MapToSlice(userNames, func(userId, name string) data.User {
		return data.User{UserId: userId, Name: name}
	})
	sort.Slice(users, func(i, j int) bool { return users[i].UserId < users[j].UserId })
	for _, batch := range lo.Chunk(users, importBatchSize) {
		if err := database.BatchInsertUsers(ctx, batch); err != nil {
			return errors.Trace(err)
		}
	}
	items := lo.MapToSlice(itemNames, func(itemId, name string) data.Item {
		return data.Item{ItemId: itemId, Name: name}
	})
	sort.Slice(items, func(i, j int) bool { return items[i].ItemId < items[j].ItemId })
	for _, batch := range lo.Chunk(items, importBatchSize) {
		if err := database.BatchInsertItems(ctx, batch); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// importRatings inserts a corpus in batches, users first.
func importRatings(ctx context.Context, database data.Database, corpus dataset.Corpus[string, string], progress io.Writer) error {
	if len(corpus) == 0 {
		return nil
	}
	users := lo.Map(corpus.Users(), func(userId string, _ int) data.User {
		return data.User{UserId: userId}
	})
	if err := database.BatchInsertUsers(ctx, users); err != nil {
		return errors.Trace(err)
	}
	ratings := make([]data.Rating, 0, corpus.CountRatings())
	for _, userId := range corpus.Users() {
		for _, itemId := range corpus[userId].Items() {
			ratings = append(ratings, data.Rating{UserId: userId, ItemId: itemId, Rating: corpus[userId][itemId]})
		}
	}
	bar := progressbar.NewOptions(len(ratings),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Importing ratings"),
		progressbar.OptionShowCount())
	for _, batch := range lo.Chunk(ratings, importBatchSize) {
		if err := database.BatchInsertRatings(ctx, batch); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(batch))
	}
	return errors.Trace(bar.Finish())
}
