package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shell and terminal metrics
var (
	ExecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pentools_exec_duration_seconds",
			Help:    "Time to execute a shell command",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 60.0},
		},
		[]string{"result"},
	)

	BuiltinCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentools_builtin_commands_total",
			Help: "Terminal built-in commands handled without the shell",
		},
		[]string{"command"},
	)

	TerminalRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentools_terminal_rejected_total",
			Help: "Terminal submissions rejected before dispatch",
		},
		[]string{"reason"},
	)

	TerminalSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pentools_terminal_subscribers",
			Help: "Number of connected terminal stream subscribers",
		},
	)

	ListingLinesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pentools_listing_lines_skipped_total",
			Help: "Directory listing lines that could not be parsed",
		},
	)

	FileOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentools_file_operations_total",
			Help: "File manager operations",
		},
		[]string{"operation", "status"},
	)

	UpdateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentools_update_checks_total",
			Help: "Update checks by outcome",
		},
		[]string{"status"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentools_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pentools_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		ExecDuration,
		BuiltinCommandsTotal,
		TerminalRejectedTotal,
		TerminalSubscribers,
		ListingLinesSkipped,
		FileOpsTotal,
		UpdateChecksTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ObserveExec records one shell execution.
func ObserveExec(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ExecDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

// RecordFileOp counts a file manager operation.
func RecordFileOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	FileOpsTotal.WithLabelValues(op, status).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoMiddleware returns Echo middleware that instruments HTTP requests.
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()
			HTTPRequestDuration.WithLabelValues(c.Request().Method, c.Path()).
				Observe(time.Since(start).Seconds())

			return err
		}
	}
}
