// Copyright 2025 The pbpctrl Authors
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

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pbpctrl/maestro/common"
)

// version/gitHash/buildTime are overridden at link time via -ldflags.
var (
	version   = common.Version
	gitHash   = "unknown"
	buildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (git %s, built %s)\n", common.App, version, gitHash, buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func buildInfo() common.BuildInfo {
	return common.BuildInfo{Version: version, GitHash: gitHash, Time: buildTime}
}
