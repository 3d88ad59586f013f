// Package metrics exposes prometheus instrumentation for match settlement.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	judgeCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codeduel",
		Name:      "judge_call_duration_seconds",
		Help:      "Latency of calls to the external AI judge.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeduel",
		Name:      "evaluations_total",
		Help:      "Code submissions evaluated, by outcome.",
	}, []string{"status"})

	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codeduel",
		Name:      "settlements_total",
		Help:      "Completed match settlements, by mode and winner.",
	}, []string{"mode", "winner"})
)

// ObserveJudgeCall records one call to the external judge.
func ObserveJudgeCall(operation string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	judgeCallDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// CountEvaluation records one submission evaluation outcome.
// Status is one of "correct", "incorrect", "skipped", "failed".
func CountEvaluation(status string) {
	evaluationsTotal.WithLabelValues(status).Inc()
}

// CountSettlement records one completed settlement.
func CountSettlement(mode, winner string) {
	settlementsTotal.WithLabelValues(mode, winner).Inc()
}
