package keyserver

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 记录密钥服务器处理份额请求的情况
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics 创建并在 reg 上注册指标。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "securefileshare",
			Subsystem: "keyserver",
			Name:      "share_requests_total",
			Help:      "Number of share requests handled, partitioned by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "securefileshare",
			Subsystem: "keyserver",
			Name:      "share_request_duration_seconds",
			Help:      "Time spent handling a share request, including the ledger simulation.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(outcome string, seconds float64) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(outcome).Inc()
	m.duration.Observe(seconds)
}
