/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the autobench CLI
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autobench",
		Short: "Automated benchmarking for LLM inference endpoints",
		Long: `Autobench: find out what your model actually costs to serve.

Plan viable (instance, runtime config) pairs for a model, deploy each one
as a managed inference endpoint, drive it with k6 load scenarios at
increasing request rates, and persist the raw results for reporting.`,
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
