package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plutonic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	matchTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "matches",
			Name:      "transitions_total",
			Help:      "Match lifecycle transitions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	quotaDenials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "matches",
			Name:      "super_like_quota_denials_total",
			Help:      "Super-like attempts rejected because the daily quota is spent.",
		},
	)

	inviteTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "meetups",
			Name:      "transitions_total",
			Help:      "Meetup invite transitions by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	notificationsRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "notifications",
			Name:      "relayed_total",
			Help:      "Notifications materialized by session relays.",
		},
		[]string{"kind"},
	)

	changeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "changes",
			Name:      "events_total",
			Help:      "Database change notifications received by the listener.",
		},
		[]string{"kind"},
	)

	pushSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "push",
			Name:      "sent_total",
			Help:      "Push deliveries by platform and result.",
		},
		[]string{"platform", "result"},
	)

	streamSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "plutonic",
			Subsystem: "stream",
			Name:      "sessions",
			Help:      "Open notification stream connections.",
		},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plutonic",
			Subsystem: "worker",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		matchTransitions,
		quotaDenials,
		inviteTransitions,
		notificationsRelayed,
		changeEvents,
		pushSent,
		streamSessions,
		jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts using the chi route pattern so that
// path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func MatchTransition(action string, err error) {
	matchTransitions.WithLabelValues(action, outcome(err)).Inc()
}

func QuotaDenied() {
	quotaDenials.Inc()
}

func InviteTransition(action string, err error) {
	inviteTransitions.WithLabelValues(action, outcome(err)).Inc()
}

func NotificationRelayed(kind string) {
	notificationsRelayed.WithLabelValues(kind).Inc()
}

func ChangeEvent(kind string) {
	changeEvents.WithLabelValues(kind).Inc()
}

func PushSent(platform string, err error) {
	pushSent.WithLabelValues(platform, outcome(err)).Inc()
}

func StreamOpened() {
	streamSessions.Inc()
}

func StreamClosed() {
	streamSessions.Dec()
}

func JobRun(job string, success bool) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer, which the
// websocket upgrade needs for hijacking.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
