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

package k6

import (
	"os"
	"strings"
	"testing"
)

func TestNewConstantArrivalRateExecutor(t *testing.T) {
	e := NewConstantArrivalRateExecutor(200, 500, 10, "120s")

	if e.Name != "constant_arrival_rate" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Variables["rate"] != 10 || e.Variables["duration"] != "120s" {
		t.Errorf("variables = %v", e.Variables)
	}
}

func TestUpdateVariables(t *testing.T) {
	e := NewConstantArrivalRateExecutor(200, 500, 10, "120s")
	e.UpdateVariables(map[string]any{
		"host": "https://bench.endpoints.test",
		"rate": 25,
	})

	if e.Variables["host"] != "https://bench.endpoints.test" {
		t.Errorf("host = %v", e.Variables["host"])
	}
	if e.Variables["rate"] != 25 {
		t.Errorf("rate = %v, want overwritten value 25", e.Variables["rate"])
	}
	if e.Variables["duration"] != "120s" {
		t.Errorf("duration = %v, existing keys must survive", e.Variables["duration"])
	}
}

func TestRenderScript(t *testing.T) {
	e := NewConstantArrivalRateExecutor(200, 500, 10, "120s")
	e.UpdateVariables(map[string]any{
		"host":      "https://bench.endpoints.test",
		"data_file": "/tmp/prompts.json",
	})

	path, err := e.RenderScript()
	if err != nil {
		t.Fatalf("RenderScript failed: %v", err)
	}
	defer func() { _ = os.Remove(path) }()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read rendered script: %v", err)
	}
	script := string(data)

	for _, want := range []string{
		"const host = 'https://bench.endpoints.test';",
		"const maxNewTokens = 200;",
		"open('/tmp/prompts.json')",
		"executor: 'constant-arrival-rate'",
		"rate: 10,",
		"duration: '120s',",
		"preAllocatedVUs: 500,",
		"/generate_stream",
		"handleSummary",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("rendered script missing %q", want)
		}
	}
	if strings.Contains(script, "{{") {
		t.Error("rendered script still contains template markers")
	}
}
