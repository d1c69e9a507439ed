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
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/internal/metrics"
	"github.com/defilantech/autobench/pkg/benchmark"
	"github.com/defilantech/autobench/pkg/config"
	"github.com/defilantech/autobench/pkg/endpoint"
	"github.com/defilantech/autobench/pkg/k6"
	"github.com/defilantech/autobench/pkg/report"
	"github.com/defilantech/autobench/pkg/scenario"
	"github.com/defilantech/autobench/pkg/scheduler"
)

type runOptions struct {
	model        string
	gpuTypes     []string
	vendor       string
	region       string
	namespace    string
	rates        string
	duration     string
	maxNewTokens int
	vus          int
	dataFile     string
	outputDir    string
	configPath   string
	metricsAddr  string
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy and benchmark a model across viable instances",
		Long: `Run the full benchmark pipeline: plan viable (instance, runtime config)
pairs for the model, deploy each pair as a managed inference endpoint,
drive it with one k6 scenario per request rate, and save the results.

Endpoints created by the run are deleted when their scenarios finish.

Examples:
  # Benchmark Llama 3.1 8B on A10G instances at the default rates
  autobench run --model meta-llama/Llama-3.1-8B-Instruct \
    --gpu-types nvidia-a10g \
    --namespace my-org \
    --data-file prompts.json

  # A shorter run at two rates
  autobench run --model mistralai/Mistral-7B-Instruct-v0.3 \
    --gpu-types nvidia-a10g,nvidia-a100 \
    --namespace my-org \
    --data-file prompts.json \
    --rates 1,10 --duration 60s
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model repository ID (required)")
	cmd.Flags().StringSliceVar(&opts.gpuTypes, "gpu-types", nil, "Instance types to consider (required)")
	cmd.Flags().StringVar(&opts.vendor, "vendor", "aws", "Preferred cloud vendor")
	cmd.Flags().StringVar(&opts.region, "region", "us", "Preferred region prefix")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Billing namespace for endpoints")
	cmd.Flags().StringVar(&opts.rates, "rates", "1,10,25,50,75,100", "Request rates per second, comma separated")
	cmd.Flags().StringVar(&opts.duration, "duration", "120s", "Duration of each scenario")
	cmd.Flags().IntVar(&opts.maxNewTokens, "max-new-tokens", 200, "Tokens generated per request")
	cmd.Flags().IntVar(&opts.vus, "vus", 500, "Pre-allocated k6 virtual users")
	cmd.Flags().StringVar(&opts.dataFile, "data-file", "", "Prompt dataset file (required)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "Directory to save results under")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Settings file (YAML)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")

	for _, flag := range []string{"model", "gpu-types", "data-file"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", flag, err))
		}
	}

	return cmd
}

func runRun(opts *runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.LoadSettings(opts.configPath)
	if err != nil {
		return err
	}
	if opts.namespace == "" {
		opts.namespace = settings.Namespace
	}
	if opts.namespace == "" {
		return fmt.Errorf("no namespace given: set --namespace or AUTOBENCH_NAMESPACE")
	}

	rates, err := parseRates(opts.rates)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
				klog.Warningf("Metrics server on %s failed: %v", opts.metricsAddr, err)
			}
		}()
		fmt.Printf("📈 Metrics on http://%s/metrics\n", opts.metricsAddr)
	}

	client := endpoint.NewClient(settings.ControlPlaneURL, settings.Token)

	payable, err := client.PayablePrincipals(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve payable principals: %w", err)
	}

	fmt.Printf("🔍 Planning benchmark for %s\n", opts.model)
	pairs, err := planPairs(ctx, settings, opts.model, opts.gpuTypes, opts.vendor, opts.region)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no viable instances for model %s", opts.model)
	}
	fmt.Printf("   %d viable instance(s), %d rate(s) each\n\n", len(pairs), len(rates))

	dataset := config.DatasetConfig{FilePath: opts.dataFile}
	if _, err := os.Stat(dataset.FilePath); err != nil {
		return fmt.Errorf("data file %s is not readable: %w", dataset.FilePath, err)
	}

	runner := k6.NewRunner(settings.K6Binary)
	var scenarios []*scenario.Scenario
	for _, pair := range pairs {
		depCfg, err := config.NewDeploymentConfig(pair.Runtime, pair.Instance, opts.namespace, payable)
		if err != nil {
			return err
		}
		dep := endpoint.NewDeployment(client, depCfg)
		dep.WaitTimeout = settings.WaitTimeout

		for _, rate := range rates {
			exec := k6.NewConstantArrivalRateExecutor(opts.maxNewTokens, opts.vus, rate, opts.duration)
			scenarios = append(scenarios, scenario.New(dep, exec, runner, dataset.FilePath))
		}
	}

	b, err := benchmark.New(scenarios)
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Starting benchmark %s (%d scenario(s) in %d group(s))\n\n", b.ID, len(scenarios), len(b.Groups))

	sched := scheduler.New(client, opts.namespace)
	result, err := b.Run(ctx, sched, opts.outputDir)
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Benchmark complete, results in %s\n\n", result.OutputDir)

	rows, err := report.Gather(result)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No successful scenarios to report.")
		return nil
	}
	return report.WriteTable(os.Stdout, rows)
}
