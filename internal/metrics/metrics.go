package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ChatMessages    *prometheus.CounterVec
	LeadsQualified  prometheus.Counter
	QuotesSubmitted prometheus.Counter
	NewsPosts       prometheus.Counter
	EnqueuedJobs    prometheus.Counter
	ProcessedJobs   prometheus.Counter
	FailedJobs      prometheus.Counter
	UpdatesTotal    prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			ChatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "chat_messages_total",
				Help:      "Total chat messages appended, by role",
			}, []string{"role"}),
			LeadsQualified: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "leads_qualified_total",
				Help:      "Total chat sessions that reached a qualified lead",
			}),
			QuotesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "quotes_submitted_total",
				Help:      "Total quote wizard submissions",
			}),
			NewsPosts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "news_posts_total",
				Help:      "Total news posts created",
			}),
			EnqueuedJobs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "delivery_enqueued_total",
				Help:      "Total delivery jobs enqueued to redis stream",
			}),
			ProcessedJobs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "delivery_processed_total",
				Help:      "Total delivery jobs successfully processed",
			}),
			FailedJobs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "delivery_failed_total",
				Help:      "Total delivery jobs failed during processing",
			}),
			UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "telegram_updates_total",
				Help:      "Total telegram updates received",
			}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "empire",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests, by route and status class",
			}, []string{"route", "class"}),
		}
		prometheus.MustRegister(
			global.ChatMessages,
			global.LeadsQualified,
			global.QuotesSubmitted,
			global.NewsPosts,
			global.EnqueuedJobs,
			global.ProcessedJobs,
			global.FailedJobs,
			global.UpdatesTotal,
			global.HTTPRequests,
		)
	})
	return global
}
