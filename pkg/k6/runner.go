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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"k8s.io/klog/v2"
)

// RunOutcome is the raw result of one k6 invocation. Stdout carries the
// JSON summary when the run succeeded.
type RunOutcome struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner invokes the k6 binary. The binary must carry the SSE extension
// for streaming scripts.
type Runner struct {
	Binary string
}

// NewRunner creates a runner for the given k6 binary.
func NewRunner(binary string) *Runner {
	return &Runner{Binary: binary}
}

// Run executes the given script with `k6 run --quiet` and waits for it to
// finish. A cancelled context kills the whole process group. A non-zero
// exit is reported through the outcome, not as an error; the returned
// error covers failures to launch or signal the process.
func (r *Runner) Run(ctx context.Context, script string) (*RunOutcome, error) {
	cmd := exec.Command(r.Binary, "run", "--quiet", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	klog.V(2).Infof("Running %s run --quiet %s", r.Binary, script)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start k6: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		// Kill the process group so k6's own children die with it.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return nil, ctx.Err()
	case err := <-done:
		outcome := &RunOutcome{
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			ExitCode: 0,
		}
		if err != nil {
			exitErr, ok := err.(*exec.ExitError)
			if !ok {
				return nil, fmt.Errorf("k6 run failed: %w", err)
			}
			outcome.ExitCode = exitErr.ExitCode()
		}
		return outcome, nil
	}
}
