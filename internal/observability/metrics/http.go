package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

type requestKey struct {
	route  string
	method string
	code   string
}

type routeKey struct {
	route  string
	method string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// observe 采用累积桶：value 计入所有上界不小于它的桶，+Inf 桶即 count。
func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			h.counts[idx]++
		}
	}
}

// Collector records HTTP request counts, server errors and latency per route.
type Collector struct {
	namespace string
	mu        sync.Mutex
	requests  map[requestKey]uint64
	errors    map[routeKey]uint64
	latency   map[routeKey]*histogram
}

// NewCollector creates an empty collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "taskpager"
	}
	return &Collector{
		namespace: namespace,
		requests:  make(map[requestKey]uint64),
		errors:    make(map[routeKey]uint64),
		latency:   make(map[routeKey]*histogram),
	}
}

// Observe records metrics about a finished HTTP request.
func (c *Collector) Observe(route, method string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[requestKey{route: route, method: method, code: strconv.Itoa(status)}]++
	key := routeKey{route: route, method: method}
	if status >= 500 {
		c.errors[key]++
	}
	hist := c.latency[key]
	if hist == nil {
		hist = newHistogram(defaultBuckets)
		c.latency[key] = hist
	}
	hist.observe(duration.Seconds())
}

// Middleware observes every request passing through a gin engine. Requests
// that matched no route are grouped under "unmatched" to bound cardinality.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.Observe(route, ctx.Request.Method, ctx.Writer.Status(), time.Since(start))
	}
}

// Handler exposes the metrics in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, c.render())
	})
}

func (c *Collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	reqKeys := make([]requestKey, 0, len(c.requests))
	for key := range c.requests {
		reqKeys = append(reqKeys, key)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		a, b := reqKeys[i], reqKeys[j]
		if a.route != b.route {
			return a.route < b.route
		}
		if a.method != b.method {
			return a.method < b.method
		}
		return a.code < b.code
	})
	errKeys := sortedRouteKeys(c.errors)
	latKeys := make([]routeKey, 0, len(c.latency))
	for key := range c.latency {
		latKeys = append(latKeys, key)
	}
	sortRouteKeys(latKeys)

	var b strings.Builder
	b.Grow(1024)

	name := c.namespace + "_http_requests_total"
	fmt.Fprintf(&b, "# HELP %s Total number of HTTP requests processed.\n# TYPE %s counter\n", name, name)
	for _, key := range reqKeys {
		fmt.Fprintf(&b, "%s{route=\"%s\",method=\"%s\",code=\"%s\"} %d\n",
			name, escape(key.route), escape(key.method), key.code, c.requests[key])
	}

	name = c.namespace + "_http_request_errors_total"
	fmt.Fprintf(&b, "# HELP %s Total number of HTTP requests that resulted in a server error.\n# TYPE %s counter\n", name, name)
	for _, key := range errKeys {
		fmt.Fprintf(&b, "%s{route=\"%s\",method=\"%s\"} %d\n",
			name, escape(key.route), escape(key.method), c.errors[key])
	}

	name = c.namespace + "_http_request_duration_seconds"
	fmt.Fprintf(&b, "# HELP %s HTTP request duration in seconds.\n# TYPE %s histogram\n", name, name)
	for _, key := range latKeys {
		hist := c.latency[key]
		labels := fmt.Sprintf("route=\"%s\",method=\"%s\"", escape(key.route), escape(key.method))
		for idx, bound := range hist.buckets {
			fmt.Fprintf(&b, "%s_bucket{%s,le=\"%s\"} %d\n", name, labels, formatFloat(bound), hist.counts[idx])
		}
		fmt.Fprintf(&b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, hist.count)
		fmt.Fprintf(&b, "%s_sum{%s} %s\n", name, labels, formatFloat(hist.sum))
		fmt.Fprintf(&b, "%s_count{%s} %d\n", name, labels, hist.count)
	}
	return b.String()
}

func sortedRouteKeys(m map[routeKey]uint64) []routeKey {
	keys := make([]routeKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sortRouteKeys(keys)
	return keys
}

func sortRouteKeys(keys []routeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].route != keys[j].route {
			return keys[i].route < keys[j].route
		}
		return keys[i].method < keys[j].method
	})
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
