// Package metrics provides a lightweight Prometheus-compatible metrics
// registry: counters, gauges, and histograms with optional labels,
// exposed over HTTP in the text exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultBuckets are the default histogram buckets, in seconds.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Counter is a monotonically increasing counter.
type Counter struct{ val atomic.Int64 }

// Inc increments by one.
func (c *Counter) Inc() { c.val.Add(1) }

// Add increments by n.
func (c *Counter) Add(n int64) { c.val.Add(n) }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.val.Load() }

// Gauge is a value that can go up and down.
type Gauge struct{ val atomic.Int64 }

// Set stores n.
func (g *Gauge) Set(n int64) { g.val.Store(n) }

// Inc increments by one.
func (g *Gauge) Inc() { g.val.Add(1) }

// Dec decrements by one.
func (g *Gauge) Dec() { g.val.Add(-1) }

// Value returns the current value.
func (g *Gauge) Value() int64 { return g.val.Load() }

// Histogram tracks the distribution of observed values over fixed
// buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, le := range h.buckets {
		if v <= le {
			h.counts[i]++
		}
	}
	h.sum += v
	h.count++
}

// name holds a metric name plus its rendered label pairs (without
// braces).
type name struct {
	metric string
	labels string // e.g. `stage="embed"`, empty when unlabelled
}

// WithLabels builds a labelled metric name from key/value pairs.
func WithLabels(metric string, kv ...string) name {
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "%s=%q", kv[i], kv[i+1])
	}
	return name{metric: metric, labels: b.String()}
}

// braced renders the label set, optionally merged with extra pairs.
func (n name) braced(extra ...string) string {
	pairs := n.labels
	for _, e := range extra {
		if pairs != "" {
			pairs += ","
		}
		pairs += e
	}
	if pairs == "" {
		return ""
	}
	return "{" + pairs + "}"
}

// Registry holds named metrics and renders them for scraping.
type Registry struct {
	mu         sync.Mutex
	counters   map[name]*Counter
	gauges     map[name]*Gauge
	histograms map[name]*Histogram
	help       map[string]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		counters:   make(map[name]*Counter),
		gauges:     make(map[name]*Gauge),
		histograms: make(map[name]*Histogram),
		help:       make(map[string]string),
	}
}

// Counter returns the counter registered under n, creating it on first
// use. Accepts a plain string or a WithLabels name.
func (r *Registry) Counter(n any, help string) *Counter {
	key := toName(n)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.help[key.metric] = help
	if c, ok := r.counters[key]; ok {
		return c
	}
	c := &Counter{}
	r.counters[key] = c
	return c
}

// Gauge returns the gauge registered under n, creating it on first use.
func (r *Registry) Gauge(n any, help string) *Gauge {
	key := toName(n)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.help[key.metric] = help
	if g, ok := r.gauges[key]; ok {
		return g
	}
	g := &Gauge{}
	r.gauges[key] = g
	return g
}

// Histogram returns the histogram registered under n, creating it on
// first use. Nil buckets use DefaultBuckets.
func (r *Registry) Histogram(n any, help string, buckets []float64) *Histogram {
	key := toName(n)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.help[key.metric] = help
	if h, ok := r.histograms[key]; ok {
		return h
	}
	if buckets == nil {
		buckets = DefaultBuckets
	}
	h := &Histogram{buckets: buckets, counts: make([]uint64, len(buckets))}
	r.histograms[key] = h
	return h
}

func toName(n any) name {
	switch v := n.(type) {
	case name:
		return v
	case string:
		return name{metric: v}
	}
	panic(fmt.Sprintf("metrics: unsupported name type %T", n))
}

// Render writes all metrics in the Prometheus text format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	var lines []string

	for n, c := range r.counters {
		lines = append(lines, fmt.Sprintf("%s%s %d", n.metric, n.braced(), c.Value()))
	}
	for n, g := range r.gauges {
		lines = append(lines, fmt.Sprintf("%s%s %d", n.metric, n.braced(), g.Value()))
	}
	for n, h := range r.histograms {
		h.mu.Lock()
		for i, le := range h.buckets {
			lines = append(lines, fmt.Sprintf("%s_bucket%s %d", n.metric, n.braced(fmt.Sprintf(`le="%g"`, le)), h.counts[i]))
		}
		lines = append(lines, fmt.Sprintf("%s_bucket%s %d", n.metric, n.braced(`le="+Inf"`), h.count))
		lines = append(lines, fmt.Sprintf("%s_sum%s %g", n.metric, n.braced(), h.sum))
		lines = append(lines, fmt.Sprintf("%s_count%s %d", n.metric, n.braced(), h.count))
		h.mu.Unlock()
	}

	sort.Strings(lines)
	var metrics []string
	for m := range r.help {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	for _, m := range metrics {
		fmt.Fprintf(&b, "# HELP %s %s\n", m, r.help[m])
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// Handler serves the registry at any path.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, r.Render())
	})
}

// ServeAsync serves /metrics on the given port in a background
// goroutine.
func (r *Registry) ServeAsync(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	go func() {
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
