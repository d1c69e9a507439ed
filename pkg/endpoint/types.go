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

package endpoint

import "encoding/json"

// Endpoint states reported by the control plane.
const (
	StateRunning      = "running"
	StateInitializing = "initializing"
	StatePaused       = "paused"
	StateFailed       = "failed"
)

// Endpoint is the control plane's descriptor of an inference endpoint. Raw
// preserves the exact document for result snapshots.
type Endpoint struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Status   Status   `json:"status"`
	Compute  Compute  `json:"compute"`
	Model    Model    `json:"model"`
	Provider Provider `json:"provider"`

	Raw json.RawMessage `json:"-"`
}

// Status carries the endpoint's lifecycle state and, while running, its URL.
type Status struct {
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
}

// Compute describes the instance backing the endpoint.
type Compute struct {
	Accelerator  string  `json:"accelerator"`
	InstanceType string  `json:"instanceType"`
	InstanceSize string  `json:"instanceSize"`
	Scaling      Scaling `json:"scaling"`
}

// Scaling holds the replica bounds for the endpoint.
type Scaling struct {
	MinReplica         int `json:"minReplica"`
	MaxReplica         int `json:"maxReplica"`
	ScaleToZeroTimeout int `json:"scaleToZeroTimeout,omitempty"`
}

// Model describes the served model and its container image.
type Model struct {
	Repository string `json:"repository"`
	Framework  string `json:"framework"`
	Task       string `json:"task"`
	Image      Image  `json:"image"`
}

// Image wraps the custom image configuration.
type Image struct {
	Custom *CustomImage `json:"custom,omitempty"`
}

// CustomImage is the inference container image with its health route and
// runtime environment.
type CustomImage struct {
	URL         string            `json:"url"`
	HealthRoute string            `json:"health_route"`
	Env         map[string]string `json:"env,omitempty"`
}

// Provider locates the endpoint in a vendor's region.
type Provider struct {
	Vendor string `json:"vendor"`
	Region string `json:"region"`
}

// CreateRequest is the payload for endpoint creation.
type CreateRequest struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Compute  Compute  `json:"compute"`
	Model    Model    `json:"model"`
	Provider Provider `json:"provider"`
}

// Identity is the control plane's description of the authenticated caller.
type Identity struct {
	Name string `json:"name"`
	Orgs []Org  `json:"orgs,omitempty"`
}

// Org is an organization the caller belongs to.
type Org struct {
	Name   string `json:"name"`
	CanPay bool   `json:"canPay"`
}
