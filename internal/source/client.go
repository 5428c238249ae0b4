// Package source implements the capability boundary to the external document
// source provider. The only question this package answers is "does this
// principal have access to this binding at the source, right now" — reaching
// the provider fails as SourceUnavailable, never as an access answer.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kbhub/internal/domain"
)

const defaultCheckTimeout = 5 * time.Second

var _ domain.SourceAccessClient = (*HTTPClient)(nil)

// HTTPClient queries the source provider's access API over HTTP. Every check
// carries a timeout; timeouts and transport failures convert to
// SourceUnavailable.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the provider at baseURL. timeout bounds
// each access check (0 defaults to 5s).
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type accessResponse struct {
	HasAccess bool `json:"has_access"`
}

// HasAccess asks the provider whether email can read the source behind the
// binding.
func (c *HTTPClient) HasAccess(ctx context.Context, binding domain.SourceBinding, email string) (bool, error) {
	u := fmt.Sprintf("%s/sources/%s/%s/access?principal=%s",
		c.baseURL,
		url.PathEscape(binding.SourceType),
		url.PathEscape(binding.ExternalID),
		url.QueryEscape(email),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("build access request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, domain.ErrSourceUnavailable(binding.SourceType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, domain.ErrSourceUnavailable(binding.SourceType,
			fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var body accessResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, domain.ErrSourceUnavailable(binding.SourceType, err)
	}
	return body.HasAccess, nil
}
