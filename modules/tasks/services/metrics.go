package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/sprintboard/modules/tasks/services/taskimport"
)

var (
	importParses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "import",
		Name:      "parses_total",
		Help:      "Total number of spreadsheet parses broken down by overall status.",
	}, []string{"status"})

	importRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "import",
		Name:      "parsed_rows_total",
		Help:      "Total number of task rows produced by the parser.",
	})

	importCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasks",
		Subsystem: "import",
		Name:      "commits_total",
		Help:      "Total number of commit attempts broken down by mode and result.",
	}, []string{"mode", "result"})

	importCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tasks",
		Subsystem: "import",
		Name:      "commit_duration_seconds",
		Help:      "Latency distribution for import commits.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	importSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tasks",
		Subsystem: "import",
		Name:      "sessions",
		Help:      "Number of import sessions currently held in memory.",
	})
)

func recordParse(res taskimport.Result) {
	importParses.WithLabelValues(string(res.Summary.Status)).Inc()
	importRows.Add(float64(len(res.Drafts)))
}

func recordCommit(mode string, started time.Time, err error) {
	if mode == "" {
		mode = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	importCommits.WithLabelValues(mode, result).Inc()
	importCommitLatency.Observe(time.Since(started).Seconds())
}

func recordSessions(n int) {
	importSessions.Set(float64(n))
}
