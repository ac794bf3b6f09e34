/*
Package resilience provides a circuit breaker for flaky upstreams.

Both consumers here talk to endpoints that are expected to fail in
normal operation: the EC2 metadata service (absent outside AWS) and a
container's CDP port while Chrome is still booting. The breaker keeps
those failures from turning into per-request latency.

# Usage

	breaker := resilience.New("imds", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
