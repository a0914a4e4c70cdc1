package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Служебные маршруты в HTTP-метрики не попадают
var skipRoutes = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
}

const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocks_http_requests_total",
			Help: "HTTP requests by route and status class",
		},
		[]string{"service", "method", "route", "status_class"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocks_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "method", "route"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stocks_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
		[]string{"service"},
	)

	stockOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocks_operations_total",
			Help: "Total number of stock social operations processed",
		},
		[]string{"operation", "status"},
	)

	stockOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocks_operation_duration_seconds",
			Help:    "Duration of stock social operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	stockOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocks_operation_errors_total",
			Help: "Total number of stock social operation errors",
		},
		[]string{"operation", "error_type"},
	)
)

// PrometheusMiddleware считает запросы по шаблону маршрута gin, а не по сырому пути
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	inFlight := httpRequestsInFlight.WithLabelValues(serviceName)
	return func(c *gin.Context) {
		route := routeLabel(c.FullPath())
		if _, skip := skipRoutes[route]; skip {
			c.Next()
			return
		}

		inFlight.Inc()
		start := time.Now()
		defer func() {
			inFlight.Dec()
			method := c.Request.Method
			httpRequestsTotal.WithLabelValues(serviceName, method, route, statusClass(c.Writer.Status())).Inc()
			httpRequestDuration.WithLabelValues(serviceName, method, route).Observe(time.Since(start).Seconds())
		}()

		c.Next()
	}
}

func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}

// statusClass сворачивает код ответа до "2xx", "4xx" и т.п.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// RecordOperation учитывает доменную операцию. errorType - класс ошибки, не её текст.
func RecordOperation(operation string, duration time.Duration, errorType string) {
	status := "success"
	if errorType != "" {
		status = "error"
		stockOperationErrors.WithLabelValues(operation, errorType).Inc()
	}
	stockOperationsTotal.WithLabelValues(operation, status).Inc()
	stockOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
