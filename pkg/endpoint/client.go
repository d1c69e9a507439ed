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

// Package endpoint is the client for the inference-endpoint control plane:
// creating, adopting, resuming and deleting endpoints, fetching quota and
// logs, and the Deployment lifecycle handle built on top of those calls.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the control plane's REST API using a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a control-plane client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func decodeEndpoint(resp *http.Response) (*Endpoint, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint response: %w", err)
	}

	var ep Endpoint
	if err := json.Unmarshal(raw, &ep); err != nil {
		return nil, fmt.Errorf("failed to decode endpoint response: %w", err)
	}
	ep.Raw = json.RawMessage(raw)
	return &ep, nil
}

// Create submits an endpoint creation request. It does not wait for the
// endpoint to come up; see Deployment.Create for the blocking flow.
func (c *Client) Create(ctx context.Context, namespace string, req CreateRequest) (*Endpoint, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v2/endpoint/"+namespace, req)
	if err != nil {
		return nil, fmt.Errorf("%w: create request failed: %v", ErrEndpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: create returned HTTP %d: %s", ErrEndpoint, resp.StatusCode, string(body))
	}
	return decodeEndpoint(resp)
}

// Get fetches the endpoint descriptor. A 404 maps to ErrNotFound.
func (c *Client) Get(ctx context.Context, namespace, name string) (*Endpoint, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v2/endpoint/%s/%s", namespace, name), nil)
	if err != nil {
		return nil, fmt.Errorf("get endpoint %s failed: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("endpoint %s/%s: %w", namespace, name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get endpoint %s returned HTTP %d", name, resp.StatusCode)
	}
	return decodeEndpoint(resp)
}

// Resume asks the control plane to resume a paused or scaled-to-zero
// endpoint.
func (c *Client) Resume(ctx context.Context, namespace, name string) (*Endpoint, error) {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v2/endpoint/%s/%s/resume", namespace, name), nil)
	if err != nil {
		return nil, fmt.Errorf("resume endpoint %s failed: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resume endpoint %s returned HTTP %d", name, resp.StatusCode)
	}
	return decodeEndpoint(resp)
}

// Delete removes the endpoint. Callers wanting the retry policy should use
// Deployment.Delete.
func (c *Client) Delete(ctx context.Context, namespace, name string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/v2/endpoint/%s/%s", namespace, name), nil)
	if err != nil {
		return fmt.Errorf("delete endpoint %s failed: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete endpoint %s returned HTTP %d", name, resp.StatusCode)
	}
	return nil
}

// Logs fetches the endpoint's logs as text. The control plane may answer
// with JSON or plain text; both come back verbatim as a string.
func (c *Client) Logs(ctx context.Context, namespace, name string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/endpoint/%s/%s/logs", namespace, name), nil)
	if err != nil {
		return "", fmt.Errorf("fetch logs for %s failed: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch logs for %s returned HTTP %d", name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read logs for %s: %w", name, err)
	}
	return string(body), nil
}

// Quota fetches the namespace's GPU quota document.
func (c *Client) Quota(ctx context.Context, namespace string) (*QuotaSnapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, "/provider/quotas/"+namespace, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch quotas failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch quotas returned HTTP %d", resp.StatusCode)
	}

	var q QuotaSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, fmt.Errorf("failed to decode quota response: %w", err)
	}
	return &q, nil
}

// Whoami returns the authenticated caller's identity.
func (c *Client) Whoami(ctx context.Context) (*Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/whoami", nil)
	if err != nil {
		return nil, fmt.Errorf("whoami failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whoami returned HTTP %d", resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, fmt.Errorf("failed to decode whoami response: %w", err)
	}
	return &id, nil
}

// PayablePrincipals lists the namespaces the caller can create billed
// endpoints under: their own account plus any org with billing enabled.
func (c *Client) PayablePrincipals(ctx context.Context) ([]string, error) {
	id, err := c.Whoami(ctx)
	if err != nil {
		return nil, err
	}

	principals := []string{id.Name}
	for _, org := range id.Orgs {
		if org.CanPay {
			principals = append(principals, org.Name)
		}
	}
	return principals, nil
}
