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

// Package k6 renders load-test scripts from embedded templates and runs
// them through the k6 binary, capturing the JSON summary from stdout.
package k6

import (
	"embed"
	"fmt"
	"os"
	"text/template"
)

//go:embed templates/*.js.tmpl
var templates embed.FS

// Executor pairs a k6 executor type with the variables its script template
// needs. Variables set at construction are the scenario's shape; the
// deployment-specific ones (host, data file) are merged in before rendering.
type Executor struct {
	Name         string
	templateName string
	Variables    map[string]any
}

// NewConstantArrivalRateExecutor builds an executor that issues requests at
// a fixed rate per second for the given duration, regardless of response
// latency.
func NewConstantArrivalRateExecutor(maxNewTokens, preAllocatedVUs, ratePerSecond int, duration string) *Executor {
	return &Executor{
		Name:         "constant_arrival_rate",
		templateName: "constant_arrival_rate.js.tmpl",
		Variables: map[string]any{
			"max_new_tokens":    maxNewTokens,
			"pre_allocated_vus": preAllocatedVUs,
			"rate":              ratePerSecond,
			"duration":          duration,
		},
	}
}

// UpdateVariables merges the given variables into the executor's set,
// overwriting existing keys.
func (e *Executor) UpdateVariables(vars map[string]any) {
	for k, v := range vars {
		e.Variables[k] = v
	}
}

// RenderScript expands the executor's template with its current variables
// and writes the result to a temp file, returning its path. The caller owns
// the file.
func (e *Executor) RenderScript() (string, error) {
	tmpl, err := template.ParseFS(templates, "templates/"+e.templateName)
	if err != nil {
		return "", fmt.Errorf("failed to parse script template %s: %w", e.templateName, err)
	}

	f, err := os.CreateTemp("", "autobench_*_k6_script.js")
	if err != nil {
		return "", fmt.Errorf("failed to create script file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := tmpl.Execute(f, e.Variables); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to render script template %s: %w", e.templateName, err)
	}
	return f.Name(), nil
}
