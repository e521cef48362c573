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
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbpctrl/maestro/confengine"
	"github.com/pbpctrl/maestro/controller"
)

// getWhat selects one of Device's unary methods. Output is a raw hex dump
// of the opaque response payload: decoding the schema is explicitly out of
// scope (spec Non-goals), so this is a minimal demonstration, not a
// user-facing settings tool.
var getWhat string

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Issue one unary Maestro RPC and print the raw response payload",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		ctr, err := controller.New(cfg, buildInfo())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
			os.Exit(1)
		}
		if err := ctr.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
			os.Exit(1)
		}
		defer ctr.Stop()

		ctx := context.Background()
		dev := ctr.Device()

		var (
			payload []byte
			callErr error
		)
		switch getWhat {
		case "software-info":
			payload, callErr = dev.GetSoftwareInfo(ctx)
		case "hardware-info":
			payload, callErr = dev.GetHardwareInfo(ctx)
		case "runtime-info":
			payload, callErr = dev.GetRuntimeInfo(ctx)
		case "all-settings":
			payload, callErr = dev.GetAllSettings(ctx)
		default:
			fmt.Fprintf(os.Stderr, "unknown --what %q (want one of: software-info, hardware-info, runtime-info, all-settings)\n", getWhat)
			os.Exit(1)
		}
		if callErr != nil {
			fmt.Fprintf(os.Stderr, "call failed: %v\n", callErr)
			os.Exit(1)
		}

		fmt.Println(hex.EncodeToString(payload))
	},
	Example: "# pbpctrl get --what software-info --config pbpctrl.yaml",
}

func init() {
	getCmd.Flags().StringVar(&getWhat, "what", "software-info", "Which unary method to call")
	rootCmd.AddCommand(getCmd)
}
