package metrics

import (
    "net/http"
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    // Registry is the dedicated Prometheus registry for the service
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, route pattern, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // RoutePlans counts planning runs by outcome (ok, no_clients, map_unavailable, ...)
    RoutePlans = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "route_plans_total", Help: "Daily route planning runs by outcome."},
        []string{"outcome"},
    )
    // RoutePlanDuration tracks end-to-end planning latency in seconds
    RoutePlanDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "route_plan_duration_seconds", Help: "Daily route planning latency.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20}},
    )
    // MapsRequests counts outbound map service calls by API and status
    MapsRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "maps_requests_total", Help: "Map service calls by api and status."},
        []string{"api", "status"},
    )
    // SheetSyncs counts remote backup operations by direction and outcome
    SheetSyncs = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "sheet_syncs_total", Help: "Spreadsheet sync operations by direction and outcome."},
        []string{"direction", "outcome"},
    )
    // EventSubscribers is the number of connected event stream clients
    EventSubscribers = prometheus.NewGauge(
        prometheus.GaugeOpts{Name: "event_subscribers", Help: "Connected event websocket clients."},
    )
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(RoutePlans)
        Registry.MustRegister(RoutePlanDuration)
        Registry.MustRegister(MapsRequests)
        Registry.MustRegister(SheetSyncs)
        Registry.MustRegister(EventSubscribers)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
    return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

var regOnce sync.Once
