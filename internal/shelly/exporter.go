package shelly

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Exporter serves the metrics page. Every request polls the device once before
// rendering, and the page is served even when the poll fails.
type Exporter struct {
	client Client
	power  *powerMetric
	render http.Handler
	logger logrus.FieldLogger
}

// NewExporter registers the power gauge with registerer and renders everything
// gatherer collects.
func NewExporter(client Client, registerer prometheus.Registerer, gatherer prometheus.Gatherer, logger logrus.FieldLogger) (*Exporter, error) {
	power, err := newPowerMetric(registerer)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		client: client,
		power:  power,
		render: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorLog:      logger,
			ErrorHandling: promhttp.ContinueOnError,
		}),
		logger: logger,
	}, nil
}

func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, err := e.client.GetStatus(r.Context())
	switch {
	case err != nil:
		e.logger.WithError(err).WithField("kind", errorKind(err)).Warn("Error fetching Shelly status, serving last known value")
	default:
		e.power.update(status)
		e.logger.WithField("power_watts", status.PowerWatts).Debug("Updated power from Shelly status")
	}

	e.render.ServeHTTP(w, r)
}

func errorKind(err error) string {
	var networkErr *NetworkError
	var decodeErr *DecodeError
	switch {
	case errors.As(err, &networkErr):
		return "network"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "unknown"
	}
}
