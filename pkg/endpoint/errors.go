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

import "errors"

var (
	// ErrNotFound indicates the control plane has no endpoint by that name.
	ErrNotFound = errors.New("endpoint not found")

	// ErrEndpoint indicates endpoint creation or startup failed. The
	// scheduler reacts to this kind by gathering logs for the OOM heuristic.
	ErrEndpoint = errors.New("endpoint error")
)
