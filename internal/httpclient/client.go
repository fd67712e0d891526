package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// ClientOptions configure the shared client used for a run.
type ClientOptions struct {
	// Timeout bounds a single request including the body read. Zero disables it.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification. Off by default.
	InsecureSkipVerify bool
	// MaxConnsPerHost caps open connections; zero means unlimited.
	MaxConnsPerHost int
}

func NewClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	idlePerHost := 32
	if opts.MaxConnsPerHost > idlePerHost {
		idlePerHost = opts.MaxConnsPerHost
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   idlePerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
