package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the metrics collected by the Prometheus exporter installed
// by [InitProvider].
func Handler() http.Handler {
	return promhttp.Handler()
}
