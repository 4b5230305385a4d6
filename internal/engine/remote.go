package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

const apiKeyHeader = "X-API-Key"

// RemoteClient speaks the remote query protocol: POST the raw query text to
// the engine's root endpoint and read the JSON response body.
type RemoteClient struct {
	desc       models.ConnectionDescriptor
	baseURL    string
	httpClient *http.Client
}

func NewRemoteClient(desc models.ConnectionDescriptor) *RemoteClient {
	address := desc.Address()
	baseURL := address
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &RemoteClient{
		desc:       desc,
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Execute posts one query and returns the raw response body. Non-2xx
// responses are classified: 401 is an authentication failure, 404 an
// unreachable host, network-level failures a connectivity failure, anything
// else a generic HTTP failure carrying status and body text.
func (c *RemoteClient) Execute(ctx context.Context, query string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	switch c.desc.AuthMode {
	case models.AuthModePassword:
		cred := base64.StdEncoding.EncodeToString([]byte(c.desc.User + ":" + c.desc.Password))
		req.Header.Set("Authorization", "Basic "+cred)
	case models.AuthModeAPIKey:
		req.Header.Set(apiKeyHeader, c.desc.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, srvErrors.NewConnectivityError(c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, srvErrors.NewConnectivityError(c.baseURL, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, srvErrors.NewAuthenticationError("remote engine rejected the credentials")
	case resp.StatusCode == http.StatusNotFound:
		return nil, srvErrors.NewConnectivityError(c.baseURL, fmt.Errorf("host responded with 404"))
	default:
		return nil, srvErrors.NewHTTPError(resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// Ping validates reachability with a trivial query.
func (c *RemoteClient) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "SELECT 1")
	return err
}
