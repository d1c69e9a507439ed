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

// Package catalog fetches the cloud provider compute catalog and flattens it
// into instance rows suitable for planning.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/config"
)

const statusAvailable = "available"

// Client retrieves compute options from the provider catalog endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Wire types for GET /v2/provider.

type providerResponse struct {
	Vendors []vendorEntry `json:"vendors"`
}

type vendorEntry struct {
	Name    string        `json:"name"`
	Status  string        `json:"status"`
	Regions []regionEntry `json:"regions"`
}

type regionEntry struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Status   string         `json:"status"`
	Computes []computeEntry `json:"computes"`
}

type computeEntry struct {
	ID              string  `json:"id"`
	Accelerator     string  `json:"accelerator"`
	Status          string  `json:"status"`
	NumAccelerators int     `json:"numAccelerators"`
	MemoryGB        float64 `json:"memoryGb"`
	GPUMemoryGB     float64 `json:"gpuMemoryGb"`
	InstanceType    string  `json:"instanceType"`
	InstanceSize    string  `json:"instanceSize"`
	Architecture    string  `json:"architecture"`
	PricePerHour    float64 `json:"pricePerHour"`
	NumCPUs         float64 `json:"numCpus"`
}

// ListGPUOptions fetches the nested vendor/region/compute document and
// flattens it into instance rows, keeping only GPU computes whose vendor,
// region and compute statuses are all available.
func (c *Client) ListGPUOptions(ctx context.Context) ([]config.InstanceConfig, error) {
	url := c.baseURL + "/v2/provider"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch compute options: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned HTTP %d", resp.StatusCode)
	}

	var doc providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	options := flatten(doc)
	klog.V(2).Infof("Catalog: %d vendors, %d available GPU options", len(doc.Vendors), len(options))
	return options, nil
}

func flatten(doc providerResponse) []config.InstanceConfig {
	var rows []config.InstanceConfig
	for _, vendor := range doc.Vendors {
		for _, region := range vendor.Regions {
			for _, compute := range region.Computes {
				if vendor.Status != statusAvailable ||
					region.Status != statusAvailable ||
					compute.Status != statusAvailable ||
					compute.Accelerator != "gpu" {
					continue
				}
				rows = append(rows, config.InstanceConfig{
					ID:           compute.ID,
					Vendor:       vendor.Name,
					VendorStatus: vendor.Status,
					Region:       region.Name,
					RegionLabel:  region.Label,
					RegionStatus: region.Status,
					Accelerator:  compute.Accelerator,
					NumGPUs:      compute.NumAccelerators,
					MemoryGB:     int(compute.MemoryGB),
					GPUMemoryGB:  int(compute.GPUMemoryGB),
					InstanceType: compute.InstanceType,
					InstanceSize: compute.InstanceSize,
					Architecture: compute.Architecture,
					Status:       compute.Status,
					PricePerHour: compute.PricePerHour,
					NumCPUs:      int(compute.NumCPUs),
				})
			}
		}
	}
	return rows
}
