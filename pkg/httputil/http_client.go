// Package httputil provides pooled HTTP clients for the external services
// the worker talks to.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig holds HTTP client configuration.
type ClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	ResponseTimeout     time.Duration

	KeepAliveInterval time.Duration
}

// DefaultClientConfig returns the default configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ResponseTimeout:     30 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// BackendClientConfig returns configuration for the backend REST API.
// Backend calls are frequent and small; keep the timeout tight.
func BackendClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 15 * time.Second
	return cfg
}

// GmailClientConfig returns configuration for the Gmail API. Raw-send
// uploads can be slow, so the response timeout is generous.
func GmailClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.MaxIdleConnsPerHost = 50
	cfg.IdleConnTimeout = 120 * time.Second
	cfg.ResponseTimeout = 60 * time.Second
	return cfg
}

// OpenAIClientConfig returns configuration for the text-generation API.
// Completions with tool calls can take well over a minute.
func OpenAIClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.MaxIdleConns = 30
	cfg.MaxConnsPerHost = 30
	cfg.IdleConnTimeout = 120 * time.Second
	cfg.ResponseTimeout = 120 * time.Second
	return cfg
}

// NewClient creates an HTTP client with connection pooling.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAliveInterval,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.ResponseTimeout,
	}
}

var (
	defaultClient *http.Client
	backendClient *http.Client
	gmailClient   *http.Client
	openaiClient  *http.Client
)

func init() {
	defaultClient = NewClient(DefaultClientConfig())
	backendClient = NewClient(BackendClientConfig())
	gmailClient = NewClient(GmailClientConfig())
	openaiClient = NewClient(OpenAIClientConfig())
}

// DefaultClient returns the shared default HTTP client.
func DefaultClient() *http.Client { return defaultClient }

// BackendClient returns the shared client for the backend REST API.
func BackendClient() *http.Client { return backendClient }

// GmailClient returns the shared client for the Gmail API.
func GmailClient() *http.Client { return gmailClient }

// OpenAIClient returns the shared client for the text-generation API.
func OpenAIClient() *http.Client { return openaiClient }
