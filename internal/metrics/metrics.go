package metrics

import (
	"time"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exports scheduler activity to Prometheus.
type Recorder struct {
	cycleDuration   prometheus.Histogram
	cycles          *prometheus.CounterVec
	duePosts        prometheus.Counter
	postsFinished   *prometheus.CounterVec
	platformResults *prometheus.CounterVec
	nextCheck       prometheus.Gauge
}

// NewRecorder registers the scheduler metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	res := Recorder{}

	res.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "scheduler_cycle_duration_seconds",
		Help: "Duration in seconds of scheduler scan cycles.",
	})
	reg.MustRegister(res.cycleDuration)

	res.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_cycles_total",
		Help: "Number of scan cycles, by result",
	}, []string{"result"})
	reg.MustRegister(res.cycles)

	res.duePosts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_due_posts_total",
		Help: "Number of due posts picked up by scans",
	})
	reg.MustRegister(res.duePosts)

	res.postsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_posts_finished_total",
		Help: "Number of posts that reached a final status",
	}, []string{"status"})
	reg.MustRegister(res.postsFinished)

	res.platformResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_platform_results_total",
		Help: "Platform publish attempts, by platform and result",
	}, []string{"platform", "result"})
	reg.MustRegister(res.platformResults)

	res.nextCheck = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_next_check_seconds",
		Help: "Seconds until the next scheduled scan",
	})
	reg.MustRegister(res.nextCheck)

	return &res
}

func (m *Recorder) CycleCompleted(duration time.Duration, due int, failed bool) {
	m.cycleDuration.Observe(duration.Seconds())
	m.duePosts.Add(float64(due))
	m.cycles.WithLabelValues(result(!failed)).Inc()
}

func (m *Recorder) PostFinished(status models.PostStatus) {
	m.postsFinished.WithLabelValues(string(status)).Inc()
}

func (m *Recorder) PlatformResult(platform string, success bool) {
	m.platformResults.WithLabelValues(platform, result(success)).Inc()
}

func (m *Recorder) NextCheckIn(interval time.Duration) {
	m.nextCheck.Set(interval.Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
