// Package metadata resolves the public hostname of the instance running
// the orchestrator. Sessions embed this hostname in the CDP and VNC URLs
// handed to clients, so it must match what the load balancer routes to.
//
// Resolution order: PUBLIC_DNS environment/config override, EC2 instance
// metadata, then "localhost" for local development.
package metadata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/browsergrid/backend/internal/infrastructure/resilience"
)

const imdsHostnameURL = "http://169.254.169.254/latest/meta-data/public-hostname"

// Resolver resolves the externally-reachable hostname of this instance.
type Resolver struct {
	override string
	client   *resty.Client
	breaker  *resilience.Breaker

	mu     sync.Mutex
	cached string
}

// NewResolver creates a resolver. override, when non-empty, short-circuits
// all lookups (the PUBLIC_DNS setting).
func NewResolver(override string) *Resolver {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(2 * time.Second).
		SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("instance-metadata", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// Off-AWS hosts fail fast and permanently
			return counts.ConsecutiveFailures >= 2
		},
	})

	return &Resolver{
		override: override,
		client:   client,
		breaker:  breaker,
	}
}

// PublicHostname returns the hostname clients should use to reach this
// instance. Never fails: falls back to localhost.
func (r *Resolver) PublicHostname(ctx context.Context) string {
	if r.override != "" {
		return r.override
	}

	r.mu.Lock()
	cached := r.cached
	r.mu.Unlock()
	if cached != "" {
		return cached
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		resp, err := r.client.R().SetContext(ctx).Get(imdsHostnameURL)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, errStatus(resp.StatusCode())
		}
		return strings.TrimSpace(resp.String()), nil
	})
	if err != nil {
		return "localhost"
	}

	hostname, ok := result.(string)
	if !ok || hostname == "" {
		return "localhost"
	}

	r.mu.Lock()
	r.cached = hostname
	r.mu.Unlock()

	return hostname
}

type errStatus int

func (e errStatus) Error() string {
	return fmt.Sprintf("metadata service returned status %d", int(e))
}
