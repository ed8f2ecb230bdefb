package mmcmd

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts and times every command executed by a runner.
type Metrics struct {
	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scale",
			Subsystem: "mmcmd",
			Name:      "commands_total",
			Help:      "Number of executed administration commands by command and exit code.",
		}, []string{"command", "rc", "timed_out"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scale",
			Subsystem: "mmcmd",
			Name:      "command_duration_seconds",
			Help:      "Wall clock time of administration commands.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"command"}),
	}
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(res.Command, strconv.Itoa(res.ExitCode), strconv.FormatBool(res.TimedOut)).Inc()
	m.duration.WithLabelValues(res.Command).Observe(res.Duration.Seconds())
}
