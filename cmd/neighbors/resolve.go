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

	"github.com/gorse-io/neighbors/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func addByNameFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("by-name", false, "Look up arguments by name instead of id")
}

// resolveUsers maps a command argument to user ids. A name may match several users.
func resolveUsers(ctx context.Context, database data.Database, arg string, byName bool) ([]string, error) {
	if !byName {
		return []string{arg}, nil
	}
	users, err := database.GetUserByName(ctx, arg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(users, func(user data.User, _ int) string {
		return user.UserId
	}), nil
}

// resolveItem maps a command argument to an item id. A name resolves to the first
// matching item.
func resolveItem(ctx context.Context, database data.Database, arg string, byName bool) (string, error) {
	if !byName {
		return arg, nil
	}
	items, err := database.GetItemByName(ctx, arg)
	if err != nil {
		return "", errors.Trace(err)
	}
	return items[0].ItemId, nil
}
