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

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the process-wide knobs for a benchmark run: service base
// URLs, the control-plane token, and the path to the load-generator binary.
type Settings struct {
	ControlPlaneURL string        `yaml:"control_plane_url"`
	CatalogURL      string        `yaml:"catalog_url"`
	RecommenderURL  string        `yaml:"recommender_url"`
	Token           string        `yaml:"token"`
	K6Binary        string        `yaml:"k6_binary"`
	Namespace       string        `yaml:"namespace"`
	WaitTimeout     time.Duration `yaml:"wait_timeout"`
}

// DefaultSettings returns settings pointing at the hosted platform, with a
// 30 minute upper bound on waiting for an endpoint to come up.
func DefaultSettings() Settings {
	return Settings{
		ControlPlaneURL: "https://api.endpoints.huggingface.cloud",
		CatalogURL:      "https://api.endpoints.huggingface.cloud",
		RecommenderURL:  "https://huggingface.co/api",
		K6Binary:        "k6-sse",
		WaitTimeout:     30 * time.Minute,
	}
}

// LoadSettings overlays an optional YAML file and then the environment on
// top of the defaults. An empty path skips the file entirely.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
		}
	}

	if v := os.Getenv("AUTOBENCH_TOKEN"); v != "" {
		s.Token = v
	} else if v := os.Getenv("HF_TOKEN"); v != "" && s.Token == "" {
		s.Token = v
	}
	if v := os.Getenv("AUTOBENCH_K6_BINARY"); v != "" {
		s.K6Binary = v
	}
	if v := os.Getenv("AUTOBENCH_NAMESPACE"); v != "" {
		s.Namespace = v
	}

	return s, nil
}
