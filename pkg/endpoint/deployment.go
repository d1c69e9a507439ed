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

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/pkg/config"
)

const inferenceImageURL = "ghcr.io/huggingface/text-generation-inference:latest"

const (
	deleteAttempts   = 3
	deleteBackoffMin = 4 * time.Second
	deleteBackoffMax = 10 * time.Second
)

// Deployment is the lifecycle handle for one endpoint. A newly created
// deployment owns its endpoint and tears it down on exit; an adopted one
// leaves the endpoint alone.
type Deployment struct {
	// DeploymentID doubles as the endpoint name on the control plane.
	DeploymentID string
	Config       config.DeploymentConfig

	// Endpoint is populated only while an endpoint exists on the control
	// plane.
	Endpoint *Endpoint

	Exists         bool
	TeardownOnExit bool

	// WaitTimeout bounds how long Create/Resume wait for the endpoint to
	// report running. WaitPollInterval is how often the state is polled.
	WaitTimeout      time.Duration
	WaitPollInterval time.Duration

	// DeleteBackoffMin and DeleteBackoffMax shape the delete retry delays.
	DeleteBackoffMin time.Duration
	DeleteBackoffMax time.Duration

	client *Client
}

// NewDeployment builds a handle for an endpoint that does not exist yet.
// The generated deployment ID is short enough to serve as an endpoint name.
func NewDeployment(client *Client, cfg config.DeploymentConfig) *Deployment {
	id := "autobench-" + strings.Split(uuid.NewString(), "-")[0]
	return &Deployment{
		DeploymentID:     id,
		Config:           cfg,
		Exists:           false,
		TeardownOnExit:   true,
		WaitTimeout:      30 * time.Minute,
		WaitPollInterval: 5 * time.Second,
		DeleteBackoffMin: deleteBackoffMin,
		DeleteBackoffMax: deleteBackoffMax,
		client:           client,
	}
}

// AdoptDeployment builds a handle from an endpoint that already exists. An
// initializing endpoint is waited for; a paused or scaled-down endpoint is
// resumed. Adopted deployments are not torn down on exit.
func AdoptDeployment(ctx context.Context, client *Client, namespace, name string) (*Deployment, error) {
	ep, err := client.Get(ctx, namespace, name)
	if err != nil {
		return nil, err
	}

	d := &Deployment{
		DeploymentID:     name,
		Config:           configFromEndpoint(ep, namespace),
		Endpoint:         ep,
		Exists:           true,
		TeardownOnExit:   false,
		WaitTimeout:      30 * time.Minute,
		WaitPollInterval: 5 * time.Second,
		DeleteBackoffMin: deleteBackoffMin,
		DeleteBackoffMax: deleteBackoffMax,
		client:           client,
	}

	switch ep.Status.State {
	case StateRunning:
	case StateInitializing:
		klog.Infof("Endpoint %s is initializing, waiting", name)
		if err := d.WaitRunning(ctx); err != nil {
			return nil, err
		}
	default:
		klog.Infof("Endpoint %s is %s, attempting to resume", name, ep.Status.State)
		if err := d.Resume(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// configFromEndpoint reconstructs a deployment config from a live endpoint
// descriptor: runtime parameters come from the container env, compute and
// provider fields from the descriptor itself.
func configFromEndpoint(ep *Endpoint, namespace string) config.DeploymentConfig {
	env := map[string]string{}
	if ep.Model.Image.Custom != nil {
		env = ep.Model.Image.Custom.Env
	}

	atoi := func(key string) int {
		n, _ := strconv.Atoi(env[key])
		return n
	}

	runtime := config.RuntimeConfig{
		ModelID:               ep.Model.Repository,
		MaxBatchPrefillTokens: atoi("MAX_BATCH_PREFILL_TOKENS"),
		MaxInputTokens:        atoi("MAX_INPUT_TOKENS"),
		MaxTotalTokens:        atoi("MAX_TOTAL_TOKENS"),
		NumShard:              atoi("NUM_SHARD"),
		Quantize:              env["QUANTIZE"],
	}

	instance := config.InstanceConfig{
		Vendor:       ep.Provider.Vendor,
		Region:       ep.Provider.Region,
		Accelerator:  ep.Compute.Accelerator,
		InstanceType: ep.Compute.InstanceType,
		InstanceSize: ep.Compute.InstanceSize,
	}

	return config.DeploymentConfig{
		Runtime:   runtime,
		Instance:  instance,
		Namespace: namespace,
	}
}

// Create submits the endpoint and blocks until it reports running. Any
// failure surfaces as an ErrEndpoint so the scheduler can run its OOM
// heuristic.
func (d *Deployment) Create(ctx context.Context) error {
	req := CreateRequest{
		Name: d.DeploymentID,
		Type: "protected",
		Compute: Compute{
			Accelerator:  "gpu",
			InstanceType: d.Config.Instance.InstanceType,
			InstanceSize: d.Config.Instance.InstanceSize,
			Scaling: Scaling{
				MinReplica:         0,
				MaxReplica:         1,
				ScaleToZeroTimeout: 30,
			},
		},
		Model: Model{
			Repository: d.Config.Runtime.ModelID,
			Framework:  "pytorch",
			Task:       "text-generation",
			Image: Image{
				Custom: &CustomImage{
					URL:         inferenceImageURL,
					HealthRoute: "/health",
					Env:         d.Config.Runtime.EnvVars(),
				},
			},
		},
		Provider: Provider{
			Vendor: d.Config.Instance.Vendor,
			Region: d.Config.Instance.Region,
		},
	}

	klog.Infof("Creating endpoint %s (%s on %s/%s)",
		d.DeploymentID, d.Config.Runtime.ModelID, d.Config.Instance.Vendor, d.Config.Instance.InstanceType)

	ep, err := d.client.Create(ctx, d.Config.Namespace, req)
	if err != nil {
		return err
	}
	d.Endpoint = ep
	d.Exists = true

	if err := d.WaitRunning(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrEndpoint, err)
	}
	klog.Infof("Endpoint %s is running at %s", d.DeploymentID, d.Endpoint.Status.URL)
	return nil
}

// Resume resumes the endpoint and waits for it to report running.
func (d *Deployment) Resume(ctx context.Context) error {
	ep, err := d.client.Resume(ctx, d.Config.Namespace, d.DeploymentID)
	if err != nil {
		return err
	}
	d.Endpoint = ep
	return d.WaitRunning(ctx)
}

// WaitRunning polls the endpoint state until it is running, the state turns
// failed, or WaitTimeout elapses.
func (d *Deployment) WaitRunning(ctx context.Context) error {
	deadline := time.Now().Add(d.WaitTimeout)
	for {
		ep, err := d.client.Get(ctx, d.Config.Namespace, d.DeploymentID)
		if err != nil {
			return err
		}
		d.Endpoint = ep

		switch ep.Status.State {
		case StateRunning:
			return nil
		case StateFailed:
			return fmt.Errorf("%w: endpoint %s entered failed state", ErrEndpoint, d.DeploymentID)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: timed out after %s waiting for endpoint %s to run (state: %s)",
				ErrEndpoint, d.WaitTimeout, d.DeploymentID, ep.Status.State)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.WaitPollInterval):
		}
	}
}

// State fetches the current endpoint state. A deployment without an
// endpoint reports "absent".
func (d *Deployment) State(ctx context.Context) string {
	if d.Endpoint == nil {
		return "absent"
	}
	ep, err := d.client.Get(ctx, d.Config.Namespace, d.DeploymentID)
	if err != nil {
		klog.V(2).Infof("Failed to fetch state for endpoint %s: %v", d.DeploymentID, err)
		return "unknown"
	}
	d.Endpoint = ep
	return ep.Status.State
}

// IsRunning reports whether the endpoint currently reports running.
func (d *Deployment) IsRunning(ctx context.Context) bool {
	return d.State(ctx) == StateRunning
}

// Delete removes the endpoint, retrying up to 3 attempts with exponential
// backoff. The last error is returned on exhaustion.
func (d *Deployment) Delete(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.DeleteBackoffMin
	bo.MaxInterval = d.DeleteBackoffMax
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		if err := d.client.Delete(ctx, d.Config.Namespace, d.DeploymentID); err != nil {
			klog.Warningf("Delete attempt %d for endpoint %s failed: %v", attempt, d.DeploymentID, err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithMaxRetries(bo, deleteAttempts-1)); err != nil {
		return fmt.Errorf("failed to delete endpoint %s after %d attempts: %w", d.DeploymentID, deleteAttempts, err)
	}

	klog.Infof("Endpoint %s deleted", d.DeploymentID)
	d.Endpoint = nil
	d.Exists = false
	return nil
}
