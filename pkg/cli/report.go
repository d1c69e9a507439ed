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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defilantech/autobench/pkg/benchmark"
	"github.com/defilantech/autobench/pkg/report"
)

type reportOptions struct {
	output string
}

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report [BENCHMARK_DIR]",
		Short: "Summarize a saved benchmark run",
		Long: `Read a saved benchmark directory (benchmark_<id>/) and print one
summary row per successful scenario.

Examples:
  # Text table
  autobench report ./benchmark_1a2b3c4d

  # Markdown, for pasting into an issue
  autobench report ./benchmark_1a2b3c4d -o markdown
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, markdown)")

	return cmd
}

func runReport(dir string, opts *reportOptions) error {
	result, err := benchmark.Load(dir)
	if err != nil {
		return err
	}

	rows, err := report.Gather(result)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No successful scenarios in this benchmark.")
		return nil
	}

	switch opts.output {
	case "table":
		return report.WriteTable(os.Stdout, rows)
	case "markdown":
		return report.WriteMarkdown(os.Stdout, rows)
	default:
		return fmt.Errorf("unknown output format %q (expected table or markdown)", opts.output)
	}
}
