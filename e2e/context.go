package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TestContext holds per-scenario state: the HTTP client, the last response,
// and identifiers saved by earlier steps for later ones to reference.
type TestContext struct {
	BaseURL string
	Role    string

	client         *http.Client
	lastStatus     int
	lastBody       map[string]any
	lastRawBody    []byte
	plotID         string
	plotIdentifier string
	entryID        string
}

// NewTestContext builds a context targeting a running server.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: baseURL,
		Role:    "central_server",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears scenario state between scenarios.
func (tc *TestContext) Reset() {
	tc.Role = "central_server"
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastRawBody = nil
	tc.plotID = ""
	tc.plotIdentifier = ""
	tc.entryID = ""
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Role", tc.Role)

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastRawBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastBody = nil
	if len(tc.lastRawBody) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(tc.lastRawBody, &parsed); err == nil {
			tc.lastBody = parsed
		}
	}
	return nil
}

func (tc *TestContext) POST(path string, body any) error { return tc.do(http.MethodPost, path, body) }
func (tc *TestContext) GET(path string) error { return tc.do(http.MethodGet, path, nil) }
func (tc *TestContext) PATCH(path string, body any) error { return tc.do(http.MethodPatch, path, body) }
func (tc *TestContext) PUT(path string, body any) error { return tc.do(http.MethodPut, path, body) }
func (tc *TestContext) DELETE(path string) error { return tc.do(http.MethodDelete, path, nil) }

// LastStatus returns the status code of the most recent response.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// GetResponseField looks up a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastBody == nil {
		return nil, fmt.Errorf("no JSON response recorded (body: %s)", tc.lastRawBody)
	}
	value, ok := tc.lastBody[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response (body: %s)", field, tc.lastRawBody)
	}
	return value, nil
}

func (tc *TestContext) SetRole(role string) { tc.Role = role }
func (tc *TestContext) SetPlotID(id string) { tc.plotID = id }
func (tc *TestContext) GetPlotID() string { return tc.plotID }
func (tc *TestContext) SetPlotIdentifier(s string) { tc.plotIdentifier = s }
func (tc *TestContext) GetPlotIdentifier() string { return tc.plotIdentifier }
func (tc *TestContext) SetEntryID(id string) { tc.entryID = id }
func (tc *TestContext) GetEntryID() string { return tc.entryID }
