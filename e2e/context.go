//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between test steps. Scenarios run against a live
// server reachable at BASE_URL, seeded with the bootstrap admin account.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	AccessToken          string
	RefreshToken         string
	PreviousRefreshToken string
	CreatedUserID        string

	AdminUsername string
	AdminPassword string
}

// NewTestContext creates a new test context.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	adminUsername := os.Getenv("E2E_ADMIN_USERNAME")
	if adminUsername == "" {
		adminUsername = "admin"
	}
	adminPassword := os.Getenv("E2E_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin-password"
	}

	return &TestContext{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
	}
}

// Do makes a JSON request and stores the response. The access token, when
// present, is attached as a bearer credential.
func (tc *TestContext) Do(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.AccessToken)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.Do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, nil)
}

func (tc *TestContext) PATCH(path string, body interface{}) error {
	return tc.Do(http.MethodPatch, path, body)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.Do(http.MethodDelete, path, nil)
}

// ResponseData unmarshals the data payload of the response envelope.
func (tc *TestContext) ResponseData() (map[string]interface{}, error) {
	var envelope struct {
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return envelope.Data, nil
}

// DataField extracts a field from the envelope data payload.
func (tc *TestContext) DataField(field string) (interface{}, error) {
	data, err := tc.ResponseData()
	if err != nil {
		return nil, err
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response data", field)
	}
	return value, nil
}

// ResponseContains checks if the raw response body contains the text.
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}
