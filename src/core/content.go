package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// Bounty descriptions live off-chain; the ledger only carries their sha256
// digest. A ContentClient talks to a digest-addressed content gateway so the
// node can store a description on create and serve it back on query.

// Package-level errors for content store operations
var (
	ErrContentNotConfigured = errors.New("content gateway not configured")
	ErrInvalidDigest        = errors.New("invalid content digest format")
	ErrContentUnavailable   = errors.New("content gateway unavailable")
	ErrDigestMismatch       = errors.New("content does not match digest")
)

var digestRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// IsValidDigest checks a digest's format (64 lowercase hex characters)
func IsValidDigest(digest string) bool {
	return digestRegex.MatchString(digest)
}

// ContentClient defines the interface for off-chain content operations
type ContentClient interface {
	// Put stores content and returns its digest
	Put(ctx context.Context, data []byte) (digest string, err error)
	// Get retrieves content by its digest
	Get(ctx context.Context, digest string) (data []byte, err error)
	// IsAvailable checks if the gateway is configured and reachable
	IsAvailable() bool
}

// HTTPContentClient implements ContentClient against a plain HTTP gateway
// that addresses blobs by digest.
type HTTPContentClient struct {
	gatewayURL string
	httpClient *http.Client
}

// NewHTTPContentClient creates a new HTTP-based content client
func NewHTTPContentClient(gatewayURL string, httpClient *http.Client) *HTTPContentClient {
	gatewayURL = strings.TrimSuffix(gatewayURL, "/")

	return &HTTPContentClient{
		gatewayURL: gatewayURL,
		httpClient: httpClient,
	}
}

// Put stores content under its own sha256 digest and returns the digest
func (c *HTTPContentClient) Put(ctx context.Context, data []byte) (string, error) {
	if c.httpClient == nil {
		return "", ErrContentNotConfigured
	}

	digest := CalculateContentDigest(data)
	reqURL := fmt.Sprintf("%s/content/%s", c.gatewayURL, digest)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: gateway returned %d", ErrContentUnavailable, resp.StatusCode)
	}
	return digest, nil
}

// Get retrieves content by digest and verifies it hashes back to the digest
func (c *HTTPContentClient) Get(ctx context.Context, digest string) ([]byte, error) {
	if c.httpClient == nil {
		return nil, ErrContentNotConfigured
	}
	if !IsValidDigest(digest) {
		return nil, ErrInvalidDigest
	}

	reqURL := fmt.Sprintf("%s/content/%s", c.gatewayURL, digest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: not found", ErrContentUnavailable)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrContentUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	if CalculateContentDigest(data) != digest {
		return nil, ErrDigestMismatch
	}
	return data, nil
}

// IsAvailable checks gateway reachability
func (c *HTTPContentClient) IsAvailable() bool {
	if c.httpClient == nil || c.gatewayURL == "" {
		return false
	}

	resp, err := c.httpClient.Get(c.gatewayURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 300
}
