// Package metrics exposes Prometheus counters for the 8-ball server.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magic8ball",
		Name:      "answers_total",
		Help:      "Total answers handed out by trigger",
	}, []string{"trigger"})

	settingsChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "magic8ball",
		Name:      "settings_changes_total",
		Help:      "Total preference changes by field",
	}, []string{"field"})

	// ActiveStreams tracks open SSE update streams.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "magic8ball",
		Name:      "active_streams",
		Help:      "Number of connected update streams",
	})
)

// IncAnswer records an answer. trigger ∈ {click,shake,ask}; anything else is "unknown".
func IncAnswer(trigger string) {
	answersTotal.WithLabelValues(normalizeTrigger(trigger)).Inc()
}

// IncSettingsChange records a preference write.
func IncSettingsChange(field string) {
	settingsChangesTotal.WithLabelValues(normalizeField(field)).Inc()
}

func normalizeTrigger(trigger string) string {
	switch t := strings.ToLower(strings.TrimSpace(trigger)); t {
	case "click", "shake", "ask":
		return t
	default:
		return "unknown"
	}
}

func normalizeField(field string) string {
	switch f := strings.ToLower(strings.TrimSpace(field)); f {
	case "shake_detection", "text_to_speech", "selected_voice":
		return f
	default:
		return "unknown"
	}
}
