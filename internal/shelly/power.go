package shelly

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// powerMetric holds the active power of the monitored switch channel.
// The gauge reads 0 until the first successful scrape.
type powerMetric struct {
	currentPowerMetric prometheus.Gauge
}

func newPowerMetric(registerer prometheus.Registerer) (*powerMetric, error) {
	metric := &powerMetric{
		currentPowerMetric: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelly",
			Name:      "power_watts",
			Help:      "Current power usage in watts",
		}),
	}
	if err := registerer.Register(metric.currentPowerMetric); err != nil {
		return nil, fmt.Errorf("error registering power metric: %w", err)
	}
	metric.currentPowerMetric.Set(0)

	return metric, nil
}

func (m *powerMetric) update(status Status) {
	m.currentPowerMetric.Set(status.PowerWatts)
}
