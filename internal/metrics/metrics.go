// Package metrics — счётчики Prometheus для голосов, показов, пересчёта итогов
// и HTTP API. Все коллекторы живут в отдельном Registry, который отдаётся на /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glowshot"

var (
	// Registry содержит коллекторы приложения.
	Registry = prometheus.NewRegistry()

	votes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratings",
			Name:      "votes_total",
			Help:      "Оценки по исходу записи.",
		},
		[]string{"outcome"},
	)

	impressions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "impressions_total",
			Help:      "Выдачи ленты по проходу (funded, tail, rotation, empty).",
		},
		[]string{"pass"},
	)

	ledgerMoves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "economy",
			Name:      "movements_total",
			Help:      "Движения по счетам по типу.",
		},
		[]string{"kind"},
	)

	recalcs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "results",
			Name:      "recalculations_total",
			Help:      "Пересчёты итогов по периоду и исходу.",
		},
		[]string{"period", "outcome"},
	)

	recalcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "results",
			Name:      "recalculation_duration_seconds",
			Help:      "Длительность пересчёта одного ключа итогов.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"period"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP-запросы по маршруту и статусу.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Запуски фоновых задач.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		votes, impressions, ledgerMoves, recalcs, recalcDuration,
		httpRequests, httpDuration, jobRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordVote учитывает исход записи оценки ("ok", "duplicate", "throttled", "rejected").
func RecordVote(outcome string) {
	votes.WithLabelValues(outcome).Inc()
}

// RecordImpression учитывает выдачу ленты.
func RecordImpression(pass string) {
	impressions.WithLabelValues(pass).Inc()
}

// RecordLedger учитывает движение по счёту.
func RecordLedger(kind string, n int64) {
	if n <= 0 {
		return
	}
	ledgerMoves.WithLabelValues(kind).Add(float64(n))
}

// RecordRecalc учитывает пересчёт итогов.
func RecordRecalc(period, outcome string, d time.Duration) {
	recalcs.WithLabelValues(period, outcome).Inc()
	recalcDuration.WithLabelValues(period).Observe(d.Seconds())
}

// RecordHTTP учитывает обработанный HTTP-запрос.
func RecordHTTP(method, route, status string, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordJob учитывает запуск фоновой задачи.
func RecordJob(job string, success bool) {
	result := "false"
	if success {
		result = "true"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}
