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

// Package metrics holds the scheduler's Prometheus instruments on a
// self-owned registry, kept separate from the default registry so library
// consumers can expose or discard them as they wish.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every autobench metric.
var Registry = prometheus.NewRegistry()

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

var (
	// Scheduler metrics

	GroupsAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autobench_groups_admitted_total",
			Help: "Scenario groups admitted by the scheduler, by instance type.",
		},
		[]string{"vendor", "instance_type"},
	)

	GroupsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autobench_groups_completed_total",
			Help: "Scenario groups finished, by deployment outcome.",
		},
		[]string{"status"},
	)

	GroupsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autobench_groups_pending",
			Help: "Scenario groups waiting for quota.",
		},
	)

	GroupsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autobench_groups_running",
			Help: "Scenario groups currently deployed and benchmarking.",
		},
	)

	GroupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autobench_group_duration_seconds",
			Help:    "Wall time from group admission to completion.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10s to ~5120s
		},
		[]string{"status"},
	)

	QuotaRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autobench_quota_refresh_total",
			Help: "Quota snapshot fetches, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		GroupsAdmitted,
		GroupsCompleted,
		GroupsPending,
		GroupsRunning,
		GroupDuration,
		QuotaRefreshTotal,
	)
}
