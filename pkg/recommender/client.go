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

// Package recommender queries the runtime-config recommender API for a
// model/instance combination.
package recommender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/config"
)

// Client retrieves runtime configurations from the recommender endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a recommender client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type configResponse struct {
	Config config.RuntimeConfig `json:"config"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Recommend asks the recommender for a runtime config given the instance's
// total GPU memory and GPU count. A nil config (with nil error) means the
// instance cannot run the model: HTTP errors and transport failures are both
// treated as infeasible, with the server's detail captured in the logs.
func (c *Client) Recommend(ctx context.Context, modelID string, gpuMemoryGB, numGPUs int) (*config.RuntimeConfig, error) {
	params := url.Values{}
	params.Set("model_id", modelID)
	params.Set("gpu_memory", strconv.Itoa(gpuMemoryGB))
	params.Set("num_gpus", strconv.Itoa(numGPUs))

	endpoint := fmt.Sprintf("%s/integrations/tgi/v1/config?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommender request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		klog.Warningf("Recommender request failed for model %s: %v", modelID, err)
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		klog.Warningf("Failed to read recommender response for model %s: %v", modelID, err)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		detail := recommendationDetail(body)
		klog.Warningf("Recommender returned HTTP %d for model %s (gpu_memory=%d, num_gpus=%d): %s",
			resp.StatusCode, modelID, gpuMemoryGB, numGPUs, detail)
		return nil, nil
	}

	var out configResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode recommender response: %w", err)
	}

	return &out.Config, nil
}

func recommendationDetail(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return string(body)
}
