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

// Package report turns saved benchmark results into per-scenario summary
// rows and renders them as text tables or markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/benchmark"
	"github.com/defilantech/autobench/pkg/scenario"
)

// Row is one scenario's aggregated view of the k6 summary.
type Row struct {
	DeploymentID string
	InstanceType string
	InstanceSize string
	NumGPUs      int
	Rate         float64

	TestDuration      float64 // seconds
	RequestsOK        int
	RequestsFailed    int
	DroppedIterations float64
	ErrorRate         float64

	TimeToFirstTokenP90  float64 // ms
	InterTokenLatencyP90 float64 // ms
	EndToEndLatencyP90   float64 // ms

	TokensReceived   float64
	TokensThroughput float64 // tokens per second
}

// k6Summary is the slice of the k6 JSON summary the report needs.
type k6Summary struct {
	State struct {
		TestRunDurationMs float64 `json:"testRunDurationMs"`
	} `json:"state"`
	RootGroup struct {
		Checks []struct {
			Passes int `json:"passes"`
			Fails  int `json:"fails"`
		} `json:"checks"`
	} `json:"root_group"`
	Metrics map[string]struct {
		Values map[string]float64 `json:"values"`
	} `json:"metrics"`
}

func (s *k6Summary) metricValue(name, key string) float64 {
	m, ok := s.Metrics[name]
	if !ok {
		return 0
	}
	return m.Values[key]
}

// Gather builds one row per successful scenario in successful groups.
// Failed groups and scenarios are skipped with a log line.
func Gather(result *benchmark.Result) ([]Row, error) {
	var rows []Row
	for _, group := range result.ScenarioGroupResults {
		if group.DeploymentStatus.Status != scenario.StatusSuccess {
			klog.V(2).Infof("Skipping group %s: deployment status %s", group.DeploymentID, group.DeploymentStatus.Status)
			continue
		}
		for _, sr := range group.ScenarioResults {
			if sr.Status.Status != scenario.StatusSuccess || len(sr.Metrics) == 0 {
				klog.V(2).Infof("Skipping scenario %s: status %s", sr.ScenarioID, sr.Status.Status)
				continue
			}

			row, err := gatherRow(group, sr)
			if err != nil {
				return nil, fmt.Errorf("scenario %s: %w", sr.ScenarioID, err)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func gatherRow(group scenario.GroupResult, sr scenario.Result) (Row, error) {
	var summary k6Summary
	if err := json.Unmarshal(sr.Metrics, &summary); err != nil {
		return Row{}, fmt.Errorf("failed to decode k6 summary: %w", err)
	}

	row := Row{
		DeploymentID: group.DeploymentID,
		TestDuration: summary.State.TestRunDurationMs / 1000,
	}

	if group.DeploymentDetails != nil {
		row.InstanceType = group.DeploymentDetails.InstanceConfig.InstanceType
		row.InstanceSize = group.DeploymentDetails.InstanceConfig.InstanceSize
		row.NumGPUs = group.DeploymentDetails.InstanceConfig.NumGPUs
	}
	if rate, ok := sr.ExecutorVariables["rate"]; ok {
		switch v := rate.(type) {
		case float64:
			row.Rate = v
		case int:
			row.Rate = float64(v)
		}
	}

	if len(summary.RootGroup.Checks) > 0 {
		row.RequestsOK = summary.RootGroup.Checks[0].Passes
		row.RequestsFailed = summary.RootGroup.Checks[0].Fails
	}
	row.DroppedIterations = summary.metricValue("dropped_iterations", "count")

	total := float64(row.RequestsOK+row.RequestsFailed) + row.DroppedIterations
	if total > 0 {
		row.ErrorRate = (float64(row.RequestsFailed) + row.DroppedIterations) / total
	}

	row.TimeToFirstTokenP90 = summary.metricValue("time_to_first_token", "p(90)")
	row.InterTokenLatencyP90 = summary.metricValue("inter_token_latency", "p(90)")
	row.EndToEndLatencyP90 = summary.metricValue("end_to_end_latency", "p(90)")
	row.TokensReceived = summary.metricValue("tokens_received", "count")
	if row.TestDuration > 0 {
		row.TokensThroughput = summary.metricValue("tokens_throughput", "count") / row.TestDuration
	}

	return row, nil
}

// WriteTable renders rows as an aligned text table.
func WriteTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPLOYMENT\tINSTANCE\tGPUS\tRATE\tDURATION\tOK\tFAILED\tDROPPED\tERR%\tTTFT P90\tITL P90\tE2E P90\tTOK/S")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s/%s\t%d\t%.0f\t%.1fs\t%d\t%d\t%.0f\t%.1f%%\t%.0fms\t%.1fms\t%.0fms\t%.1f\n",
			r.DeploymentID,
			r.InstanceType, r.InstanceSize,
			r.NumGPUs,
			r.Rate,
			r.TestDuration,
			r.RequestsOK,
			r.RequestsFailed,
			r.DroppedIterations,
			r.ErrorRate*100,
			r.TimeToFirstTokenP90,
			r.InterTokenLatencyP90,
			r.EndToEndLatencyP90,
			r.TokensThroughput,
		)
	}
	return tw.Flush()
}

// WriteMarkdown renders rows as a markdown table.
func WriteMarkdown(w io.Writer, rows []Row) error {
	if _, err := fmt.Fprintln(w, "| Deployment | Instance | GPUs | Rate | Duration | OK | Failed | Dropped | Err % | TTFT p90 | ITL p90 | E2E p90 | Tok/s |"); err != nil {
		return err
	}
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|---|---|---|---|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s/%s | %d | %.0f | %.1fs | %d | %d | %.0f | %.1f | %.0fms | %.1fms | %.0fms | %.1f |\n",
			r.DeploymentID,
			r.InstanceType, r.InstanceSize,
			r.NumGPUs,
			r.Rate,
			r.TestDuration,
			r.RequestsOK,
			r.RequestsFailed,
			r.DroppedIterations,
			r.ErrorRate*100,
			r.TimeToFirstTokenP90,
			r.InterTokenLatencyP90,
			r.EndToEndLatencyP90,
			r.TokensThroughput,
		)
	}
	return nil
}
