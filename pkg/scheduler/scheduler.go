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

// Package scheduler admits scenario groups against the namespace's GPU
// quota and drives each admitted group through deploy, benchmark and
// teardown.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/defilantech/autobench/internal/metrics"
	"github.com/defilantech/autobench/pkg/endpoint"
	"github.com/defilantech/autobench/pkg/scenario"
)

const oomMarker = "OutOfMemoryError"

// ControlPlane is the slice of the endpoint client the scheduler needs:
// quota snapshots for admission and logs for the OOM heuristic.
type ControlPlane interface {
	Quota(ctx context.Context, namespace string) (*endpoint.QuotaSnapshot, error)
	Logs(ctx context.Context, namespace, name string) (string, error)
}

// Scheduler runs scenario groups with quota-aware admission. Groups are
// admitted in submission order as capacity frees up; each admitted group
// gets a worker goroutine while the scheduler itself stays single-threaded.
type Scheduler struct {
	ControlPlane ControlPlane
	Namespace    string

	// Tick is how often quota is refreshed while groups wait.
	Tick time.Duration

	// LogDelay is how long to wait after a failed deployment before
	// fetching logs, giving the control plane time to flush them.
	LogDelay time.Duration

	// DeleteDelay is the pause before teardown, letting the endpoint
	// settle after the last scenario.
	DeleteDelay time.Duration
}

// New creates a scheduler with the default pacing.
func New(cp ControlPlane, namespace string) *Scheduler {
	return &Scheduler{
		ControlPlane: cp,
		Namespace:    namespace,
		Tick:         10 * time.Second,
		LogDelay:     60 * time.Second,
		DeleteDelay:  5 * time.Second,
	}
}

// Run executes all groups and returns one result per group, in completion
// order. It returns an error only when the initial quota fetch fails;
// per-group failures are recorded in the results. Cancelling the context
// drops groups still pending and lets running workers tear down.
func (s *Scheduler) Run(ctx context.Context, groups []*scenario.Group) ([]scenario.GroupResult, error) {
	quota, err := s.ControlPlane.Quota(ctx, s.Namespace)
	if err != nil {
		metrics.QuotaRefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("initial quota fetch failed: %w", err)
	}
	metrics.QuotaRefreshTotal.WithLabelValues("success").Inc()

	pending := append([]*scenario.Group(nil), groups...)
	results := make([]scenario.GroupResult, 0, len(groups))
	done := make(chan scenario.GroupResult)
	running := 0

	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()

	ctxDone := ctx.Done()

	for len(pending) > 0 || running > 0 {
		// Admission pass: launch every pending group the quota can hold.
		remaining := pending[:0]
		for _, g := range pending {
			if s.admit(ctx, quota, g) {
				running++
				metrics.GroupsRunning.Inc()
				go func(g *scenario.Group) {
					done <- s.deployAndBenchmark(ctx, g)
				}(g)
			} else {
				remaining = append(remaining, g)
			}
		}
		pending = remaining
		metrics.GroupsPending.Set(float64(len(pending)))

		if len(pending) == 0 && running == 0 {
			break
		}

		select {
		case result := <-done:
			results = append(results, result)
			running--
			metrics.GroupsRunning.Dec()
			metrics.GroupsCompleted.WithLabelValues(result.DeploymentStatus.Status).Inc()
			quota = s.refreshQuota(ctx, quota)
		case <-ticker.C:
			quota = s.refreshQuota(ctx, quota)
		case <-ctxDone:
			if len(pending) > 0 {
				klog.Warningf("Context cancelled, dropping %d pending group(s)", len(pending))
				pending = nil
				metrics.GroupsPending.Set(0)
			}
			ctxDone = nil
		}
	}

	return results, nil
}

// admit reports whether a group can start now. A group whose deployment is
// already running occupies its quota on the control plane and is always
// admitted; otherwise the snapshot must hold its GPU count, which is then
// reserved locally.
func (s *Scheduler) admit(ctx context.Context, quota *endpoint.QuotaSnapshot, g *scenario.Group) bool {
	dep := g.Deployment
	if dep.Exists && dep.IsRunning(ctx) {
		metrics.GroupsAdmitted.WithLabelValues(dep.Config.Instance.Vendor, dep.Config.Instance.InstanceType).Inc()
		return true
	}

	vendor := dep.Config.Instance.Vendor
	instanceType := dep.Config.Instance.InstanceType
	need := dep.Config.Instance.NumGPUs
	if quota.Available(vendor, instanceType) < need {
		klog.V(2).Infof("Deployment %s needs %d accelerator(s) on %s/%s, %d available",
			dep.DeploymentID, need, vendor, instanceType, quota.Available(vendor, instanceType))
		return false
	}

	quota.Reserve(vendor, instanceType, need)
	metrics.GroupsAdmitted.WithLabelValues(vendor, instanceType).Inc()
	return true
}

func (s *Scheduler) refreshQuota(ctx context.Context, current *endpoint.QuotaSnapshot) *endpoint.QuotaSnapshot {
	if ctx.Err() != nil {
		return current
	}
	quota, err := s.ControlPlane.Quota(ctx, s.Namespace)
	if err != nil {
		metrics.QuotaRefreshTotal.WithLabelValues("error").Inc()
		klog.Warningf("Quota refresh failed, keeping previous snapshot: %v", err)
		return current
	}
	metrics.QuotaRefreshTotal.WithLabelValues("success").Inc()
	return quota
}

// deployAndBenchmark drives one group end to end: bring the deployment up,
// run the scenarios, and tear the endpoint down if this run owns it. Every
// failure is absorbed into the group result.
func (s *Scheduler) deployAndBenchmark(ctx context.Context, g *scenario.Group) scenario.GroupResult {
	dep := g.Deployment
	start := time.Now()
	status := scenario.DeploymentStatus{Status: scenario.StatusFailed}
	results := []scenario.Result{}
	var details *scenario.DeploymentDetails

	err := s.bringUp(ctx, dep)
	if err != nil {
		status.Error = err.Error()
		if errors.Is(err, endpoint.ErrEndpoint) {
			status.OOM = s.checkOOM(ctx, dep)
		}
		// The endpoint never served: snapshot the configs, but no
		// endpoint descriptor.
		details = g.Details()
		details.EndpointDetails = nil
	} else {
		results, err = g.Run(ctx)
		details = g.Details()
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Status = scenario.StatusSuccess
		}
	}

	s.teardown(ctx, dep, &status)

	metrics.GroupDuration.WithLabelValues(status.Status).Observe(time.Since(start).Seconds())

	return scenario.GroupResult{
		DeploymentID:      dep.DeploymentID,
		ScenarioResults:   results,
		DeploymentDetails: details,
		DeploymentStatus:  status,
	}
}

func (s *Scheduler) bringUp(ctx context.Context, dep *endpoint.Deployment) error {
	if !dep.Exists {
		return dep.Create(ctx)
	}
	if !dep.IsRunning(ctx) {
		return dep.Resume(ctx)
	}
	return nil
}

// checkOOM waits for the control plane to flush logs, then scans them for
// the CUDA out-of-memory marker. Log fetch failures make this a no.
func (s *Scheduler) checkOOM(ctx context.Context, dep *endpoint.Deployment) bool {
	if !dep.Exists {
		return false
	}

	klog.Infof("Deployment %s failed, waiting %s before checking logs", dep.DeploymentID, s.LogDelay)
	select {
	case <-ctx.Done():
	case <-time.After(s.LogDelay):
	}

	logs, err := s.ControlPlane.Logs(context.WithoutCancel(ctx), s.Namespace, dep.DeploymentID)
	if err != nil {
		klog.Warningf("Failed to fetch logs for %s: %v", dep.DeploymentID, err)
		return false
	}
	return strings.Contains(logs, oomMarker)
}

// teardown deletes the endpoint when this run owns it. It runs detached
// from the caller's cancellation so an aborted benchmark still cleans up.
func (s *Scheduler) teardown(ctx context.Context, dep *endpoint.Deployment, status *scenario.DeploymentStatus) {
	if !dep.Exists || !dep.TeardownOnExit {
		return
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if !dep.IsRunning(cleanupCtx) {
		return
	}

	klog.V(2).Infof("Waiting %s before deleting %s", s.DeleteDelay, dep.DeploymentID)
	time.Sleep(s.DeleteDelay)

	if err := dep.Delete(cleanupCtx); err != nil {
		if status.Error != "" {
			status.Error += "; " + err.Error()
		} else {
			status.Error = err.Error()
		}
	}
}
