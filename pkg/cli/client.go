package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a structured error returned by the kbhub API.
type APIError struct {
	HTTPStatus int
	Code       int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.HTTPStatus, e.Message)
}

// Client is a thin HTTP client for the kbhub API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a client for the given host. A trailing slash on the host
// is stripped.
func NewClient(host, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(host, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do issues a request against the authenticated /v1 surface. The path is
// relative, e.g. "/invites".
func (c *Client) Do(method, path string, query url.Values, body interface{}) (*http.Response, error) {
	return c.do(method, "/v1"+path, query, body)
}

// DoPublic issues a request against the unauthenticated surface, e.g.
// "/invites/validate".
func (c *Client) DoPublic(method, path string, query url.Values, body interface{}) (*http.Response, error) {
	return c.do(method, path, query, body)
}

func (c *Client) do(method, path string, query url.Values, body interface{}) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// CheckError converts a non-2xx response into an *APIError, consuming the
// body. Responses below 400 pass through untouched.
func CheckError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck

	apiErr := &APIError{HTTPStatus: resp.StatusCode}
	var parsed struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		apiErr.Code = parsed.Code
		apiErr.Kind = parsed.Kind
		apiErr.Message = parsed.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// DecodeBody decodes the response body into v and closes it.
func DecodeBody(resp *http.Response, v interface{}) error {
	defer resp.Body.Close() //nolint:errcheck
	return json.NewDecoder(resp.Body).Decode(v)
}

// getJSON is the common GET-and-decode path used by list commands.
func getJSON(c *Client, path string, query url.Values, v interface{}) error {
	resp, err := c.Do(http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := CheckError(resp); err != nil {
		return err
	}
	return DecodeBody(resp, v)
}

// postJSON posts a body and decodes the response. A nil out discards the
// response body.
func postJSON(c *Client, path string, body, out interface{}) error {
	resp, err := c.Do(http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	if err := CheckError(resp); err != nil {
		return err
	}
	if out == nil {
		resp.Body.Close() //nolint:errcheck
		return nil
	}
	return DecodeBody(resp, out)
}

// doNoContent issues a request and discards any response body.
func doNoContent(c *Client, method, path string) error {
	resp, err := c.Do(method, path, nil, nil)
	if err != nil {
		return err
	}
	if err := CheckError(resp); err != nil {
		return err
	}
	resp.Body.Close() //nolint:errcheck
	return nil
}
