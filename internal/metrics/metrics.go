// Package metrics 提供Prometheus监控指标
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = &Registry{
			counters:   make(map[string]*Counter),
			gauges:     make(map[string]*Gauge),
			histograms: make(map[string]*Histogram),
		}
		initDefaultMetrics()
	})
	return registry
}

// initDefaultMetrics 初始化默认指标
func initDefaultMetrics() {
	registry.NewCounter("tourplan_http_requests_total", "HTTP请求总数", []string{"method", "path", "status"})

	registry.NewHistogram("tourplan_http_request_duration_seconds", "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})

	// 求解结果按出口分类：optimal / time-limit / infeasible / budget / fault
	registry.NewCounter("tourplan_solve_total", "求解请求次数", []string{"outcome"})

	registry.NewHistogram("tourplan_solve_duration_seconds", "求解耗时",
		[]string{},
		[]float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0})

	registry.NewCounter("tourplan_solve_nodes_total", "搜索节点总数", []string{})
	registry.NewCounter("tourplan_solve_backtracks_total", "搜索回溯总数", []string{})
	registry.NewCounter("tourplan_infeasible_total", "不可行结论次数", []string{"block_class"})

	registry.NewGauge("tourplan_solution_score", "最近一次求解得分", []string{})
	registry.NewGauge("tourplan_soft_violations", "最近一次求解的软意愿违反数", []string{})

	registry.NewCounter("tourplan_cache_requests_total", "求解缓存查询次数", []string{"result"})

	registry.NewGauge("tourplan_db_connections", "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}
	// 各桶只存本区间计数，导出时再累加为 Prometheus 的累计桶
	placed := false
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
			placed = true
			break
		}
	}
	if !placed {
		h.counts[key][len(h.Buckets)]++ // +Inf bucket
	}
	h.sums[key] += value
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		reg := GetRegistry()
		reg.mu.RLock()
		defer reg.mu.RUnlock()

		for _, counter := range reg.counters {
			fmt.Fprintf(w, "# HELP %s %s\n", counter.Name, counter.Help)
			fmt.Fprintf(w, "# TYPE %s counter\n", counter.Name)

			counter.mu.RLock()
			for key, value := range counter.values {
				writeSample(w, counter.Name, counter.Labels, key, value)
			}
			counter.mu.RUnlock()
		}

		for _, gauge := range reg.gauges {
			fmt.Fprintf(w, "# HELP %s %s\n", gauge.Name, gauge.Help)
			fmt.Fprintf(w, "# TYPE %s gauge\n", gauge.Name)

			gauge.mu.RLock()
			for key, value := range gauge.values {
				writeSample(w, gauge.Name, gauge.Labels, key, value)
			}
			gauge.mu.RUnlock()
		}

		for _, histogram := range reg.histograms {
			fmt.Fprintf(w, "# HELP %s %s\n", histogram.Name, histogram.Help)
			fmt.Fprintf(w, "# TYPE %s histogram\n", histogram.Name)

			histogram.mu.RLock()
			for key, counts := range histogram.counts {
				cumulative := 0
				for i, bucket := range histogram.Buckets {
					cumulative += counts[i]
					writeBucket(w, histogram.Name, histogram.Labels, key, fmt.Sprintf("%g", bucket), cumulative)
				}
				cumulative += counts[len(histogram.Buckets)]
				writeBucket(w, histogram.Name, histogram.Labels, key, "+Inf", cumulative)
				if key == "" {
					fmt.Fprintf(w, "%s_sum %f\n", histogram.Name, histogram.sums[key])
					fmt.Fprintf(w, "%s_count %d\n", histogram.Name, cumulative)
				} else {
					fmt.Fprintf(w, "%s_sum{%s} %f\n", histogram.Name, formatLabels(histogram.Labels, key), histogram.sums[key])
					fmt.Fprintf(w, "%s_count{%s} %d\n", histogram.Name, formatLabels(histogram.Labels, key), cumulative)
				}
			}
			histogram.mu.RUnlock()
		}
	})
}

func writeSample(w http.ResponseWriter, name string, labels []string, key string, value float64) {
	if key == "" {
		fmt.Fprintf(w, "%s %f\n", name, value)
	} else {
		fmt.Fprintf(w, "%s{%s} %f\n", name, formatLabels(labels, key), value)
	}
}

func writeBucket(w http.ResponseWriter, name string, labels []string, key, le string, count int) {
	if key == "" {
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, count)
	} else {
		fmt.Fprintf(w, "%s_bucket{%s,le=%q} %d\n", name, formatLabels(labels, key), le, count)
	}
}

// formatLabels 格式化标签
func formatLabels(names []string, values string) string {
	vals := strings.Split(values, ",")
	parts := make([]string, 0, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", name, val))
	}
	return strings.Join(parts, ",")
}

// RecordRequest 记录请求指标
func RecordRequest(method, path string, status int, duration time.Duration) {
	reg := GetRegistry()

	if counter := reg.GetCounter("tourplan_http_requests_total"); counter != nil {
		counter.Inc(method, path, fmt.Sprintf("%d", status))
	}
	if histogram := reg.GetHistogram("tourplan_http_request_duration_seconds"); histogram != nil {
		histogram.Observe(duration.Seconds(), method, path)
	}
}

// RecordSolve 记录一次求解的结局与开销
func RecordSolve(outcome string, duration time.Duration, nodes, backtracks int64) {
	reg := GetRegistry()

	if counter := reg.GetCounter("tourplan_solve_total"); counter != nil {
		counter.Inc(outcome)
	}
	if histogram := reg.GetHistogram("tourplan_solve_duration_seconds"); histogram != nil {
		histogram.Observe(duration.Seconds())
	}
	if counter := reg.GetCounter("tourplan_solve_nodes_total"); counter != nil {
		counter.Add(float64(nodes))
	}
	if counter := reg.GetCounter("tourplan_solve_backtracks_total"); counter != nil {
		counter.Add(float64(backtracks))
	}
}

// RecordInfeasible 记录不可行结论的阻塞类别
func RecordInfeasible(blockClass string) {
	if counter := GetRegistry().GetCounter("tourplan_infeasible_total"); counter != nil {
		counter.Inc(blockClass)
	}
}

// RecordCacheLookup 记录缓存查询结果
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	if counter := GetRegistry().GetCounter("tourplan_cache_requests_total"); counter != nil {
		counter.Inc(result)
	}
}

// SetSolutionQuality 记录最近一次求解的得分与软违反数
func SetSolutionQuality(score float64, softViolations int) {
	reg := GetRegistry()
	if gauge := reg.GetGauge("tourplan_solution_score"); gauge != nil {
		gauge.Set(score)
	}
	if gauge := reg.GetGauge("tourplan_soft_violations"); gauge != nil {
		gauge.Set(float64(softViolations))
	}
}
