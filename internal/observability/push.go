package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the run's metrics to a Prometheus Pushgateway, replacing the
// previous push for job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	pusher := push.New(gatewayURL, job)
	for _, c := range m.Collectors() {
		pusher = pusher.Collector(c)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
