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

// Package config holds the typed configuration records shared by the
// benchmark pipeline: the runtime configuration applied to an inference
// container, the compute instance description pulled from the provider
// catalog, and the deployment configuration that pairs the two under a
// billing namespace.
package config

import (
	"errors"
	"fmt"
	"strconv"

	"k8s.io/klog/v2"
)

// ErrPermission indicates the requested namespace is not a principal the
// caller can pay for. This is the only fatal configuration error.
var ErrPermission = errors.New("namespace is not a payable principal")

// RuntimeConfig describes how the inference server is parameterized for a
// specific model. It is typically produced by the recommender API.
type RuntimeConfig struct {
	ModelID               string  `json:"model_id"`
	MaxBatchPrefillTokens int     `json:"max_batch_prefill_tokens"`
	MaxInputTokens        int     `json:"max_input_tokens"`
	MaxTotalTokens        int     `json:"max_total_tokens"`
	NumShard              int     `json:"num_shard"`
	Quantize              string  `json:"quantize,omitempty"`
	EstimatedMemoryGB     float64 `json:"estimated_memory_in_gigabytes,omitempty"`
}

// EnvVars returns the process environment applied to the inference
// container. QUANTIZE is only present when a quantization is set.
func (c RuntimeConfig) EnvVars() map[string]string {
	numShard := c.NumShard
	if numShard == 0 {
		numShard = 1
	}

	env := map[string]string{
		"MAX_BATCH_PREFILL_TOKENS": strconv.Itoa(c.MaxBatchPrefillTokens),
		"MAX_INPUT_TOKENS":         strconv.Itoa(c.MaxInputTokens),
		"MAX_TOTAL_TOKENS":         strconv.Itoa(c.MaxTotalTokens),
		"NUM_SHARD":                strconv.Itoa(numShard),
		"MODEL_ID":                 "/repository",
	}
	if c.Quantize != "" {
		env["QUANTIZE"] = c.Quantize
	}
	return env
}

// InstanceConfig is a single row of the provider compute catalog, flattened
// so that vendor and region metadata travel with the compute attributes.
type InstanceConfig struct {
	ID           string  `json:"id"`
	Vendor       string  `json:"vendor"`
	VendorStatus string  `json:"vendor_status,omitempty"`
	Region       string  `json:"region"`
	RegionLabel  string  `json:"region_label,omitempty"`
	RegionStatus string  `json:"region_status,omitempty"`
	Accelerator  string  `json:"accelerator"`
	NumGPUs      int     `json:"num_gpus,omitempty"`
	MemoryGB     int     `json:"memory_in_gb,omitempty"`
	GPUMemoryGB  int     `json:"gpu_memory_in_gb,omitempty"`
	InstanceType string  `json:"instance_type"`
	InstanceSize string  `json:"instance_size"`
	Architecture string  `json:"architecture,omitempty"`
	Status       string  `json:"status,omitempty"`
	PricePerHour float64 `json:"price_per_hour,omitempty"`
	NumCPUs      int     `json:"num_cpus,omitempty"`
}

// DeploymentConfig pairs a runtime configuration with a compute instance
// under the namespace that will be billed for the endpoint.
type DeploymentConfig struct {
	Runtime   RuntimeConfig  `json:"runtime_config"`
	Instance  InstanceConfig `json:"instance_config"`
	Namespace string         `json:"namespace"`
}

// NewDeploymentConfig builds a DeploymentConfig after verifying that the
// namespace is one of the caller's payable principals.
func NewDeploymentConfig(runtime RuntimeConfig, instance InstanceConfig, namespace string, payable []string) (DeploymentConfig, error) {
	ok := false
	for _, p := range payable {
		if p == namespace {
			ok = true
			break
		}
	}
	if !ok {
		return DeploymentConfig{}, fmt.Errorf("namespace %q: %w", namespace, ErrPermission)
	}

	klog.V(2).Infof("Deployment config: model=%s instance=%s namespace=%s",
		runtime.ModelID, instance.ID, namespace)

	return DeploymentConfig{
		Runtime:   runtime,
		Instance:  instance,
		Namespace: namespace,
	}, nil
}

// DatasetConfig describes the prompt dataset used by load scenarios. The
// dataset file is materialized externally; scenarios only consume FilePath.
type DatasetConfig struct {
	Name     string `json:"dataset_name" yaml:"dataset_name"`
	Split    string `json:"dataset_split" yaml:"dataset_split"`
	FilePath string `json:"file_path" yaml:"file_path"`
}
