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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbpctrl/maestro/confengine"
	"github.com/pbpctrl/maestro/controller"
	"github.com/pbpctrl/maestro/internal/sigs"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to runtime info updates and print each payload as hex",
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

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-sigs.Terminate()
			cancel()
		}()

		stream, err := ctr.Device().SubscribeRuntimeInfo(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open stream: %v\n", err)
			os.Exit(1)
		}

		for {
			payload, err := stream.Next(ctx)
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "stream error: %v\n", err)
				return
			}
			fmt.Println(hex.EncodeToString(payload))
		}
	},
	Example: "# pbpctrl watch --config pbpctrl.yaml",
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
