package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	envAPIURL = "COUNCILKB_API_URL"
	envSecret = "COUNCILKB_WEBHOOK_SECRET"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → default
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var baseURL, secret string

	if cmd != nil {
		baseURL = flagValue(cmd.Flags(), "api-url")
		secret = flagValue(cmd.Flags(), "secret")
	}

	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if secret == "" {
		secret = os.Getenv(envSecret)
	}

	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return &APIClient{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// flagValue reads a string flag, tolerating flags that were never registered
// so subcommands work with or without the root persistent flags.
func flagValue(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil {
		return ""
	}
	value, _ := flags.GetString(name)
	return value
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request and returns the raw response body.
func (c *APIClient) Get(path string) ([]byte, error) {
	return c.do("GET", path, nil)
}

// Post performs a POST request with JSON body and returns the raw response body.
func (c *APIClient) Post(path string, body interface{}) ([]byte, error) {
	return c.do("POST", path, body)
}

func (c *APIClient) do(method, path string, body interface{}) ([]byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Vapi-Secret", c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	return respBody, nil
}
