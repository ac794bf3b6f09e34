package container

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/browsergrid/backend/internal/infrastructure/resilience"
)

// Prober waits for a freshly launched container's Chrome DevTools
// endpoint to come up. Chrome inside the container takes a moment to
// bind 9333; streaming markers before it is reachable hands the agent a
// dead CDP URL.
type Prober struct {
	client  *resty.Client
	breaker *resilience.Breaker
	step    time.Duration
}

// NewProber creates a CDP readiness prober.
func NewProber() *Prober {
	return &Prober{
		client: resty.New().SetTimeout(time.Second),
		breaker: resilience.New("cdp-probe", resilience.Settings{
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				// Startup polls are expected to fail; trip only on a
				// long unbroken run
				return counts.ConsecutiveFailures >= 60
			},
		}),
		step: 250 * time.Millisecond,
	}
}

// WaitReady polls the CDP version endpoint until it answers or ctx
// expires. The probe always targets loopback: the port is published on
// the local daemon, and DevTools rejects any Host header that is not
// an IP address or localhost.
func (p *Prober) WaitReady(ctx context.Context, cdpPort string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/json/version", cdpPort)

	ticker := time.NewTicker(p.step)
	defer ticker.Stop()

	for {
		_, err := p.breaker.Execute(func() (interface{}, error) {
			resp, err := p.client.R().SetContext(ctx).Get(url)
			if err != nil {
				return nil, err
			}
			if resp.IsError() {
				return nil, fmt.Errorf("cdp endpoint returned %d", resp.StatusCode())
			}
			return nil, nil
		})
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cdp endpoint %s never became ready: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}
