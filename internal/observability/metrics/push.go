package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the collected metrics to a Pushgateway. One-shot commands exit
// before any scrape, so this is how their counters get out.
func Push(ctx context.Context, gatewayURL, job string) error {
	if !enabled || gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).
		Gatherer(registry).
		Grouping("service", serviceName).
		AddContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
