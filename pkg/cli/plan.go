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
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/defilantech/autobench/pkg/config"
)

type planOptions struct {
	model      string
	gpuTypes   []string
	vendor     string
	region     string
	configPath string
}

// NewPlanCommand creates the plan command
func NewPlanCommand() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which instances can run a model",
		Long: `Query the compute catalog and the configuration recommender, and print
the (instance, runtime config) pairs a benchmark run would deploy.

No endpoints are created.

Examples:
  # Plan a benchmark for Llama 3.1 8B on A10G and A100 instances
  autobench plan --model meta-llama/Llama-3.1-8B-Instruct --gpu-types nvidia-a10g,nvidia-a100

  # Prefer AWS instances in European regions
  autobench plan --model mistralai/Mistral-7B-Instruct-v0.3 \
    --gpu-types nvidia-a10g --vendor aws --region eu
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model repository ID (required)")
	cmd.Flags().StringSliceVar(&opts.gpuTypes, "gpu-types", nil, "Instance types to consider (required)")
	cmd.Flags().StringVar(&opts.vendor, "vendor", "aws", "Preferred cloud vendor")
	cmd.Flags().StringVar(&opts.region, "region", "us", "Preferred region prefix")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Settings file (YAML)")

	for _, flag := range []string{"model", "gpu-types"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", flag, err))
		}
	}

	return cmd
}

func runPlan(opts *planOptions) error {
	ctx := context.Background()

	settings, err := config.LoadSettings(opts.configPath)
	if err != nil {
		return err
	}

	fmt.Printf("🔍 Planning benchmark for %s\n\n", opts.model)

	pairs, err := planPairs(ctx, settings, opts.model, opts.gpuTypes, opts.vendor, opts.region)
	if err != nil {
		return err
	}

	if len(pairs) == 0 {
		fmt.Println("No viable instances found for this model.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tSIZE\tGPUS\tGPU MEM\tVENDOR\tREGION\t$/H\tMAX TOTAL TOKENS\tQUANTIZE")
	for _, pair := range pairs {
		quantize := pair.Runtime.Quantize
		if quantize == "" {
			quantize = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%dGB\t%s\t%s\t%.2f\t%d\t%s\n",
			pair.Instance.InstanceType,
			pair.Instance.InstanceSize,
			pair.Instance.NumGPUs,
			pair.Instance.GPUMemoryGB,
			pair.Instance.Vendor,
			pair.Instance.Region,
			pair.Instance.PricePerHour,
			pair.Runtime.MaxTotalTokens,
			quantize,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n✅ %d viable instance(s)\n", len(pairs))
	return nil
}
