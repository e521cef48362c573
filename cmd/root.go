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

// Package cmd is the pbpctrl CLI: a persistent --config flag, foreground
// commands that drive a controller.Controller through sigs.Terminate/Reload,
// and a thin "get"/"watch" surface demonstrating the client against a real
// device.
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

var rootCmd = &cobra.Command{
	Use:   "pbpctrl",
	Short: "Control and inspect Pixel Buds Pro over its Maestro RPC channel",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "pbpctrl.yaml", "Configuration file path")
}

// Execute runs the CLI. Called once from main.
func Execute() {
	// GOMAXPROCS must reflect cgroup limits before the dispatcher spins up
	// its reader goroutine, since containerized deployments otherwise leave
	// the Go runtime sized for the host's full core count.
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("failed to set GOMAXPROCS: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
