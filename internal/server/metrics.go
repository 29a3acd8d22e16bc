package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	active        *prometheus.GaugeVec
	duration      *prometheus.HistogramVec
	audioBytes    prometheus.Counter
	videosScanned prometheus.Counter
	segments      prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidquiz_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vidquiz_http_requests_active",
			Help: "In-flight HTTP requests",
		}, []string{"route", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidquiz_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"route", "method"}),
		audioBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidquiz_speech_audio_bytes_total",
			Help: "Synthesized audio bytes served",
		}),
		videosScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidquiz_videos_analyzed_total",
			Help: "Videos analyzed successfully",
		}),
		segments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidquiz_segments_generated_total",
			Help: "Quiz segments produced by analysis",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.active, m.duration,
		m.audioBytes, m.videosScanned, m.segments,
	)
	return m
}

func (m *metrics) middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		method := c.Method()
		route := c.Path()

		m.active.WithLabelValues(route, method).Inc()
		defer m.active.WithLabelValues(route, method).Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *metrics) handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
