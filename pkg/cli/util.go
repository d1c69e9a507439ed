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
	"strconv"
	"strings"

	"github.com/defilantech/autobench/pkg/catalog"
	"github.com/defilantech/autobench/pkg/config"
	"github.com/defilantech/autobench/pkg/planner"
	"github.com/defilantech/autobench/pkg/recommender"
)

// parseRates parses a comma-separated list of request rates.
func parseRates(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	rates := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q: %w", p, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid rate %d: must be positive", n)
		}
		rates = append(rates, n)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("no rates given")
	}
	return rates, nil
}

// planPairs runs the shared plan pipeline: catalog, ranking, recommender.
func planPairs(ctx context.Context, settings config.Settings, model string, gpuTypes []string, vendor, region string) ([]planner.ViablePair, error) {
	p := planner.New(
		catalog.NewClient(settings.CatalogURL),
		recommender.NewClient(settings.RecommenderURL),
	)

	instances, err := p.Plan(ctx, gpuTypes, vendor, region)
	if err != nil {
		return nil, err
	}
	return p.Viable(ctx, model, instances)
}

// truncate shortens a string to max characters with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
